package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDateRange = errors.New("invalid_date_range")
	ErrNotFound         = errors.New("not_found")
)

// Row is one statement line joined with its statement header, enriched with
// the derived analysis figures.
type Row struct {
	StatementID    snowflake.ID `json:"statement_id"`
	Number         string       `json:"number"`
	ProjectID      snowflake.ID `json:"project_id"`
	ProjectName    string       `json:"project_name"`
	WorkTypeID     snowflake.ID `json:"work_type_id"`
	WorkTypeName   string       `json:"work_type_name"`
	ContractorID   snowflake.ID `json:"contractor_id"`
	ContractorName string       `json:"contractor_name"`
	ContractorType string       `json:"contractor_type"`
	Status         string       `json:"status"`
	StatementDate  time.Time    `json:"statement_date"`
	PeriodFrom     time.Time    `json:"period_from"`
	PeriodTo       time.Time    `json:"period_to"`

	ProductID   snowflake.ID `json:"product_id"`
	ProductName string       `json:"product_name"`
	Unit        string       `json:"unit"`

	ContractQty     decimal.Decimal `json:"contract_qty"`
	PrevQty         decimal.Decimal `json:"prev_qty"`
	CurrentQty      decimal.Decimal `json:"current_qty"`
	TotalQty        decimal.Decimal `json:"total_qty"`
	RemainingQty    decimal.Decimal `json:"remaining_qty"`
	ProgressPercent decimal.Decimal `json:"progress_percent"`
	ProgressRange   string          `json:"progress_range"`

	UnitPrice       decimal.Decimal `json:"unit_price"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	TotalValue      decimal.Decimal `json:"total_value"`
	GrossValue      decimal.Decimal `json:"gross_value"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	NetPayable      decimal.Decimal `json:"net_payable"`
	ValueRange      string          `json:"value_range"`

	CostPerUnit      decimal.Decimal `json:"cost_per_unit"`
	EfficiencyRatio  decimal.Decimal `json:"efficiency_ratio"`
	VariancePercent  decimal.Decimal `json:"variance_percent"`
	WorkDurationDays int             `json:"work_duration_days"`

	Month   string `json:"month"`
	Year    string `json:"year"`
	Quarter string `json:"quarter"`
	Week    string `json:"week"`
}

type Filter struct {
	CompanyID    *snowflake.ID
	ProjectID    *snowflake.ID
	WorkTypeID   *snowflake.ID
	ContractorID *snowflake.ID
	Status       *string
	From         *time.Time
	To           *time.Time
}

// File is a rendered export ready to be streamed.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

type Service interface {
	Analysis(ctx context.Context, filter Filter) ([]Row, error)
	ExportAnalysis(ctx context.Context, filter Filter) (*File, error)
	ExportStatement(ctx context.Context, statementID snowflake.ID) (*File, error)
	RenderStatementPDF(ctx context.Context, statementID snowflake.ID) (*File, error)
}
