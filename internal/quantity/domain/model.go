package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Key identifies one billed quantity stream: a product delivered by a
// contractor for a work type on a project.
type Key struct {
	ProjectID    snowflake.ID `json:"project_id"`
	WorkTypeID   snowflake.ID `json:"work_type_id"`
	ContractorID snowflake.ID `json:"contractor_id"`
	ProductID    snowflake.ID `json:"product_id"`
}

func (k Key) Valid() bool {
	return k.ProjectID != 0 && k.WorkTypeID != 0 && k.ContractorID != 0 && k.ProductID != 0
}

// LedgerEntry is the running total of confirmed quantities for a key. A row
// exists only while the total is non-zero.
type LedgerEntry struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	ProjectID      snowflake.ID    `gorm:"not null;uniqueIndex:ux_quantity_ledger_key,priority:1" json:"project_id"`
	WorkTypeID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_quantity_ledger_key,priority:2" json:"work_type_id"`
	ContractorID   snowflake.ID    `gorm:"not null;uniqueIndex:ux_quantity_ledger_key,priority:3" json:"contractor_id"`
	ProductID      snowflake.ID    `gorm:"not null;uniqueIndex:ux_quantity_ledger_key,priority:4" json:"product_id"`
	AccumulatedQty decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"accumulated_qty"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (LedgerEntry) TableName() string { return "quantity_ledger_entries" }

func (e LedgerEntry) Key() Key {
	return Key{ProjectID: e.ProjectID, WorkTypeID: e.WorkTypeID, ContractorID: e.ContractorID, ProductID: e.ProductID}
}

// ContractQuantity is the contracted cap for a key.
type ContractQuantity struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	ProjectID    snowflake.ID    `gorm:"not null;uniqueIndex:ux_contract_quantity_key,priority:1" json:"project_id"`
	WorkTypeID   snowflake.ID    `gorm:"not null;uniqueIndex:ux_contract_quantity_key,priority:2" json:"work_type_id"`
	ContractorID snowflake.ID    `gorm:"not null;uniqueIndex:ux_contract_quantity_key,priority:3" json:"contractor_id"`
	ProductID    snowflake.ID    `gorm:"not null;uniqueIndex:ux_contract_quantity_key,priority:4" json:"product_id"`
	ContractQty  decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"contract_qty"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}

func (ContractQuantity) TableName() string { return "contract_quantities" }

// Reconciliation compares the running total with the sum of billed lines.
type Reconciliation struct {
	Key        Key             `json:"key"`
	Tracked    bool            `json:"tracked"`
	Ledger     decimal.Decimal `json:"ledger"`
	Historical decimal.Decimal `json:"historical"`
	Drift      decimal.Decimal `json:"drift"`
}

func (r Reconciliation) InSync() bool { return r.Drift.IsZero() }

func Models() []any {
	return []any{&LedgerEntry{}, &ContractQuantity{}}
}
