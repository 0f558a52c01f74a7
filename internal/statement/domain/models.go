package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusApproved  Status = "approved"
	StatusPaid      Status = "paid"
)

// Locked reports whether the statement produced accounting artifacts.
func (s Status) Locked() bool {
	return s == StatusApproved || s == StatusPaid
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusApproved, StatusPaid:
		return true
	}
	return false
}

type ContractorType string

const (
	ContractorTypeMain ContractorType = "main"
	ContractorTypeSub  ContractorType = "sub"
)

func (t ContractorType) Valid() bool {
	return t == ContractorTypeMain || t == ContractorTypeSub
}

// Statement is one contractor billing document for a work period.
type Statement struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	CompanyID      snowflake.ID   `gorm:"not null;index" json:"company_id"`
	Number         string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"number"`
	ProjectID      snowflake.ID   `gorm:"not null;index:ix_statements_scope,priority:1" json:"project_id"`
	WorkTypeID     snowflake.ID   `gorm:"not null;index:ix_statements_scope,priority:2" json:"work_type_id"`
	ContractorID   snowflake.ID   `gorm:"not null;index:ix_statements_scope,priority:3" json:"contractor_id"`
	ContractorType ContractorType `gorm:"type:text;not null" json:"contractor_type"`
	StatementDate  time.Time      `gorm:"type:date;not null;index" json:"statement_date"`
	PeriodFrom     time.Time      `gorm:"type:date;not null" json:"period_from"`
	PeriodTo       time.Time      `gorm:"type:date;not null" json:"period_to"`

	GrossValue              decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"gross_value"`
	TaxAmount               decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"tax_amount"`
	Subtotal                decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"subtotal"`
	AdvancePaymentDeduction decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"advance_payment_deduction"`
	RetentionPercentage     decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"retention_percentage"`
	Retention               decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"retention"`
	OtherDeductions         decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"other_deductions"`
	TotalDeductions         decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_deductions"`
	NetPayable              decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"net_payable"`

	DeductionConfigID  *snowflake.ID `json:"deduction_config_id,omitempty"`
	AdvanceAccountID   *snowflake.ID `json:"advance_account_id,omitempty"`
	RetentionAccountID *snowflake.ID `json:"retention_account_id,omitempty"`
	OtherAccountID     *snowflake.ID `json:"other_account_id,omitempty"`

	JournalID       *snowflake.ID `json:"journal_id,omitempty"`
	PaymentMethodID *snowflake.ID `json:"payment_method_id,omitempty"`
	PaymentNotes    string        `gorm:"type:text" json:"payment_notes,omitempty"`

	ContractorSignature   string `gorm:"type:text" json:"contractor_signature,omitempty"`
	ConsultantSignature   string `gorm:"type:text" json:"consultant_signature,omitempty"`
	ProjectOwnerSignature string `gorm:"type:text" json:"project_owner_signature,omitempty"`

	Status        Status        `gorm:"type:text;not null;index" json:"status"`
	LedgerEntryID *snowflake.ID `json:"ledger_entry_id,omitempty"`
	PaymentID     *snowflake.ID `json:"payment_id,omitempty"`

	CreatedBy   string     `gorm:"type:text" json:"created_by,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	ConfirmedBy *string    `gorm:"type:text" json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ApprovedBy  *string    `gorm:"type:text" json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	PaidBy      *string    `gorm:"type:text" json:"paid_by,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`

	Lines  []StatementLine `gorm:"foreignKey:StatementID" json:"lines"`
	TaxIDs []snowflake.ID  `gorm:"-" json:"tax_ids"`
}

func (Statement) TableName() string { return "statements" }

// StatementLine is one billed product. Every field after UnitPrice is
// derived by the line calculator.
type StatementLine struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	StatementID snowflake.ID    `gorm:"not null;index" json:"statement_id"`
	Sequence    int             `gorm:"not null" json:"sequence"`
	ProductID   snowflake.ID    `gorm:"not null;index" json:"product_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Unit        string          `gorm:"type:text;not null" json:"unit"`
	CurrentQty  decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"current_qty"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"unit_price"`

	ContractQty     decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"contract_qty"`
	PrevQty         decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"prev_qty"`
	TotalQty        decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"total_qty"`
	ProgressPercent decimal.Decimal `gorm:"type:numeric(9,2);not null" json:"progress_percent"`
	CurrentValue    decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"current_value"`
	TotalValue      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_value"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StatementLine) TableName() string { return "statement_lines" }

// StatementTax links a statement to a tax definition.
type StatementTax struct {
	StatementID snowflake.ID `gorm:"primaryKey"`
	TaxID       snowflake.ID `gorm:"primaryKey"`
}

func (StatementTax) TableName() string { return "statement_taxes" }

func Models() []any {
	return []any{&Statement{}, &StatementLine{}, &StatementTax{}}
}
