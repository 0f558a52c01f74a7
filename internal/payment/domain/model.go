package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type State string

const (
	StateDraft  State = "draft"
	StatePosted State = "posted"
)

// Payment records money moving between the company and a partner through a
// bank or cash journal.
type Payment struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID    `gorm:"not null;index" json:"company_id"`
	Direction       Direction       `gorm:"type:text;not null" json:"direction"`
	PartnerID       snowflake.ID    `gorm:"not null;index" json:"partner_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	JournalID       snowflake.ID    `gorm:"not null" json:"journal_id"`
	PaymentMethodID *snowflake.ID   `json:"payment_method_id,omitempty"`
	Date            time.Time       `gorm:"type:date;not null" json:"date"`
	Reference       string          `gorm:"type:text;not null" json:"reference"`
	State           State           `gorm:"type:text;not null" json:"state"`
	LedgerEntryID   *snowflake.ID   `json:"ledger_entry_id,omitempty"`
	PostedAt        *time.Time      `json:"posted_at,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

type CreatePaymentInput struct {
	CompanyID       snowflake.ID
	Direction       Direction
	PartnerID       snowflake.ID
	Amount          decimal.Decimal
	JournalID       snowflake.ID
	PaymentMethodID *snowflake.ID
	Date            time.Time
	Reference       string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	MarkPosted(ctx context.Context, db *gorm.DB, id, entryID snowflake.ID, postedAt time.Time) (bool, error)
}

// Service creates and posts payments inside the caller's transaction.
type Service interface {
	CreatePayment(ctx context.Context, tx *gorm.DB, input CreatePaymentInput) (snowflake.ID, error)
	Post(ctx context.Context, tx *gorm.DB, paymentID snowflake.ID) error
	Get(ctx context.Context, paymentID snowflake.ID) (*Payment, error)
}

var (
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrInvalidDirection = errors.New("invalid_payment_direction")
	ErrInvalidPartner   = errors.New("invalid_partner")
	ErrInvalidAmount    = errors.New("invalid_payment_amount")
	ErrInvalidJournal   = errors.New("invalid_payment_journal")
	ErrInvalidDate      = errors.New("invalid_payment_date")
	ErrMissingAccount   = errors.New("missing_payment_account")
	ErrAlreadyPosted    = errors.New("payment_already_posted")
	ErrNotFound         = errors.New("not_found")
)
