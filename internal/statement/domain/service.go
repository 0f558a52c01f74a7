package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, st *Statement) error
	UpdateHeader(ctx context.Context, db *gorm.DB, st *Statement) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Statement, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Statement, error)
	NumbersWithPrefix(ctx context.Context, db *gorm.DB, prefix string) ([]string, error)
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from Status, updates map[string]any) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertLine(ctx context.Context, db *gorm.DB, line *StatementLine) error
	SaveLine(ctx context.Context, db *gorm.DB, line *StatementLine) error
	DeleteLine(ctx context.Context, db *gorm.DB, statementID, lineID snowflake.ID) error

	ReplaceTaxes(ctx context.Context, db *gorm.DB, statementID snowflake.ID, taxIDs []snowflake.ID) error
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Statement, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Statement, error)
	AddLine(ctx context.Context, id snowflake.ID, req LineRequest) (*Statement, error)
	UpdateLine(ctx context.Context, id, lineID snowflake.ID, req LineUpdate) (*Statement, error)
	RemoveLine(ctx context.Context, id, lineID snowflake.ID) (*Statement, error)
	Get(ctx context.Context, id snowflake.ID) (*Statement, error)
	List(ctx context.Context, filter ListFilter) ([]*Statement, error)
	Preview(ctx context.Context, id snowflake.ID) (*Statement, error)

	Confirm(ctx context.Context, id snowflake.ID, actor string) (*Statement, error)
	ResetToDraft(ctx context.Context, id snowflake.ID, actor string) (*Statement, error)
	Approve(ctx context.Context, id snowflake.ID, actor string) (*Statement, error)
	MarkPaid(ctx context.Context, id snowflake.ID, actor string, req MarkPaidRequest) (*Statement, error)
	Delete(ctx context.Context, id snowflake.ID, actor string) error
}

type LineRequest struct {
	ProductID  snowflake.ID    `json:"product_id"`
	CurrentQty decimal.Decimal `json:"current_qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type LineUpdate struct {
	ProductID  *snowflake.ID    `json:"product_id"`
	CurrentQty *decimal.Decimal `json:"current_qty"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
}

type CreateRequest struct {
	ProjectID      snowflake.ID   `json:"project_id"`
	WorkTypeID     snowflake.ID   `json:"work_type_id"`
	ContractorID   snowflake.ID   `json:"contractor_id"`
	ContractorType ContractorType `json:"contractor_type"`
	StatementDate  time.Time      `json:"statement_date"`
	PeriodFrom     time.Time      `json:"period_from"`
	PeriodTo       time.Time      `json:"period_to"`

	JournalID       *snowflake.ID  `json:"journal_id"`
	PaymentMethodID *snowflake.ID  `json:"payment_method_id"`
	TaxIDs          []snowflake.ID `json:"tax_ids"`

	AdvancePaymentDeduction decimal.Decimal  `json:"advance_payment_deduction"`
	OtherDeductions         decimal.Decimal  `json:"other_deductions"`
	RetentionPercentage     *decimal.Decimal `json:"retention_percentage"`
	Retention               *decimal.Decimal `json:"retention"`

	PaymentNotes          string `json:"payment_notes"`
	ContractorSignature   string `json:"contractor_signature"`
	ConsultantSignature   string `json:"consultant_signature"`
	ProjectOwnerSignature string `json:"project_owner_signature"`

	Lines []LineRequest `json:"lines"`
	Actor string        `json:"-"`
}

// UpdateRequest patches a draft header. Nil fields are left alone.
type UpdateRequest struct {
	ProjectID      *snowflake.ID   `json:"project_id"`
	WorkTypeID     *snowflake.ID   `json:"work_type_id"`
	ContractorID   *snowflake.ID   `json:"contractor_id"`
	ContractorType *ContractorType `json:"contractor_type"`
	StatementDate  *time.Time      `json:"statement_date"`
	PeriodFrom     *time.Time      `json:"period_from"`
	PeriodTo       *time.Time      `json:"period_to"`

	JournalID       *snowflake.ID   `json:"journal_id"`
	PaymentMethodID *snowflake.ID   `json:"payment_method_id"`
	TaxIDs          *[]snowflake.ID `json:"tax_ids"`

	AdvancePaymentDeduction *decimal.Decimal `json:"advance_payment_deduction"`
	OtherDeductions         *decimal.Decimal `json:"other_deductions"`
	RetentionPercentage     *decimal.Decimal `json:"retention_percentage"`
	Retention               *decimal.Decimal `json:"retention"`

	PaymentNotes          *string `json:"payment_notes"`
	ContractorSignature   *string `json:"contractor_signature"`
	ConsultantSignature   *string `json:"consultant_signature"`
	ProjectOwnerSignature *string `json:"project_owner_signature"`
}

type MarkPaidRequest struct {
	PaymentMethodID *snowflake.ID `json:"payment_method_id"`
	PaymentNotes    *string       `json:"payment_notes"`
}

type ListFilter struct {
	CompanyID    *snowflake.ID
	ProjectID    *snowflake.ID
	WorkTypeID   *snowflake.ID
	ContractorID *snowflake.ID
	Status       *Status
	From         *time.Time
	To           *time.Time
	Limit        int
}
