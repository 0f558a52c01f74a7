package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidKey      = errors.New("invalid_quantity_key")
	ErrInvalidQuantity = errors.New("invalid_quantity")
)

// HistoryFilter narrows the billed-line sum used as the ledger fallback.
type HistoryFilter struct {
	Before             *time.Time
	ExcludeStatementID snowflake.ID
}

type Repository interface {
	FindEntry(ctx context.Context, db *gorm.DB, key Key, forUpdate bool) (*LedgerEntry, error)
	InsertEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) (bool, error)
	UpdateEntryQty(ctx context.Context, db *gorm.DB, id snowflake.ID, qty decimal.Decimal, at time.Time) error
	DeleteEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ListEntries(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]LedgerEntry, error)
	BilledQuantities(ctx context.Context, db *gorm.DB, key Key, filter HistoryFilter) ([]decimal.Decimal, error)
	FindContract(ctx context.Context, db *gorm.DB, key Key) (*ContractQuantity, error)
	UpsertContract(ctx context.Context, db *gorm.DB, cq *ContractQuantity) error
}

// Service owns the quantity ledger and the contract registry. Methods taking
// tx run inside the caller's transaction; a nil tx uses the service pool.
type Service interface {
	Accrue(ctx context.Context, tx *gorm.DB, key Key, delta decimal.Decimal) (decimal.Decimal, error)
	Lookup(ctx context.Context, tx *gorm.DB, key Key) (decimal.Decimal, error)
	PreviousQuantity(ctx context.Context, tx *gorm.DB, key Key, statementDate time.Time, excludeStatementID snowflake.ID) (decimal.Decimal, error)
	HistoricalQuantity(ctx context.Context, tx *gorm.DB, key Key, before time.Time) (decimal.Decimal, error)
	Reconcile(ctx context.Context, key Key) (Reconciliation, error)
	Backfill(ctx context.Context, key Key) (Reconciliation, error)
	ListEntries(ctx context.Context, projectID snowflake.ID) ([]LedgerEntry, error)

	ContractQuantity(ctx context.Context, tx *gorm.DB, key Key) (decimal.Decimal, error)
	SetContractQuantity(ctx context.Context, key Key, qty decimal.Decimal) (*ContractQuantity, error)
}
