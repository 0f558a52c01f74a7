package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sitebill/internal/config"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	"github.com/smallbiznis/sitebill/internal/providers/pdf"
	"github.com/smallbiznis/sitebill/internal/report/domain"
	statementdomain "github.com/smallbiznis/sitebill/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Statements statementdomain.Service
	MasterData masterdomain.Repository
	PDF        pdf.Provider         `optional:"true"`
	Policy     *config.PolicyHolder `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	statements statementdomain.Service
	masterData masterdomain.Repository
	pdf        pdf.Provider
	policy     *config.PolicyHolder
}

func NewService(p Params) domain.Service {
	policy := p.Policy
	if policy == nil {
		policy = config.NewStaticPolicyHolder(config.DefaultPolicy())
	}
	renderer := p.PDF
	if renderer == nil {
		renderer = pdf.New()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("report.service"),
		statements: p.Statements,
		masterData: p.MasterData,
		pdf:        renderer,
		policy:     policy,
	}
}

type analysisRow struct {
	StatementID     snowflake.ID    `gorm:"column:statement_id"`
	Number          string          `gorm:"column:number"`
	ProjectID       snowflake.ID    `gorm:"column:project_id"`
	ProjectName     string          `gorm:"column:project_name"`
	WorkTypeID      snowflake.ID    `gorm:"column:work_type_id"`
	WorkTypeName    string          `gorm:"column:work_type_name"`
	ContractorID    snowflake.ID    `gorm:"column:contractor_id"`
	ContractorName  string          `gorm:"column:contractor_name"`
	ContractorType  string          `gorm:"column:contractor_type"`
	Status          string          `gorm:"column:status"`
	StatementDate   time.Time       `gorm:"column:statement_date"`
	PeriodFrom      time.Time       `gorm:"column:period_from"`
	PeriodTo        time.Time       `gorm:"column:period_to"`
	ProductID       snowflake.ID    `gorm:"column:product_id"`
	ProductName     string          `gorm:"column:product_name"`
	Unit            string          `gorm:"column:unit"`
	ContractQty     decimal.Decimal `gorm:"column:contract_qty"`
	PrevQty         decimal.Decimal `gorm:"column:prev_qty"`
	CurrentQty      decimal.Decimal `gorm:"column:current_qty"`
	TotalQty        decimal.Decimal `gorm:"column:total_qty"`
	ProgressPercent decimal.Decimal `gorm:"column:progress_percent"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price"`
	CurrentValue    decimal.Decimal `gorm:"column:current_value"`
	TotalValue      decimal.Decimal `gorm:"column:total_value"`
	GrossValue      decimal.Decimal `gorm:"column:gross_value"`
	TaxAmount       decimal.Decimal `gorm:"column:tax_amount"`
	TotalDeductions decimal.Decimal `gorm:"column:total_deductions"`
	NetPayable      decimal.Decimal `gorm:"column:net_payable"`
}

func (s *Service) Analysis(ctx context.Context, filter domain.Filter) ([]domain.Row, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.ErrInvalidDateRange
	}

	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		where = append(where, clause)
		args = append(args, arg)
	}
	if filter.CompanyID != nil {
		add("s.company_id = ?", *filter.CompanyID)
	}
	if filter.ProjectID != nil {
		add("s.project_id = ?", *filter.ProjectID)
	}
	if filter.WorkTypeID != nil {
		add("s.work_type_id = ?", *filter.WorkTypeID)
	}
	if filter.ContractorID != nil {
		add("s.contractor_id = ?", *filter.ContractorID)
	}
	if filter.Status != nil {
		add("s.status = ?", strings.TrimSpace(*filter.Status))
	}
	if filter.From != nil {
		add("s.statement_date >= ?", *filter.From)
	}
	if filter.To != nil {
		add("s.statement_date <= ?", *filter.To)
	}

	query := `
		SELECT s.id AS statement_id,
		       s.number,
		       s.project_id,
		       COALESCE(p.name, '') AS project_name,
		       s.work_type_id,
		       COALESCE(w.name, '') AS work_type_name,
		       s.contractor_id,
		       COALESCE(c.name, '') AS contractor_name,
		       s.contractor_type,
		       s.status,
		       s.statement_date,
		       s.period_from,
		       s.period_to,
		       l.product_id,
		       l.description AS product_name,
		       l.unit,
		       l.contract_qty,
		       l.prev_qty,
		       l.current_qty,
		       l.total_qty,
		       l.progress_percent,
		       l.unit_price,
		       l.current_value,
		       l.total_value,
		       s.gross_value,
		       s.tax_amount,
		       s.total_deductions,
		       s.net_payable
		FROM statement_lines l
		JOIN statements s ON s.id = l.statement_id
		LEFT JOIN projects p ON p.id = s.project_id
		LEFT JOIN work_types w ON w.id = s.work_type_id
		LEFT JOIN contractors c ON c.id = s.contractor_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY s.statement_date DESC, s.id DESC, l.sequence ASC, l.id ASC"

	var rows []analysisRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	buckets := s.buckets()
	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		r := domain.Row{
			StatementID:     row.StatementID,
			Number:          row.Number,
			ProjectID:       row.ProjectID,
			ProjectName:     row.ProjectName,
			WorkTypeID:      row.WorkTypeID,
			WorkTypeName:    row.WorkTypeName,
			ContractorID:    row.ContractorID,
			ContractorName:  row.ContractorName,
			ContractorType:  row.ContractorType,
			Status:          row.Status,
			StatementDate:   row.StatementDate,
			PeriodFrom:      row.PeriodFrom,
			PeriodTo:        row.PeriodTo,
			ProductID:       row.ProductID,
			ProductName:     row.ProductName,
			Unit:            row.Unit,
			ContractQty:     row.ContractQty,
			PrevQty:         row.PrevQty,
			CurrentQty:      row.CurrentQty,
			TotalQty:        row.TotalQty,
			ProgressPercent: row.ProgressPercent,
			UnitPrice:       row.UnitPrice,
			CurrentValue:    row.CurrentValue,
			TotalValue:      row.TotalValue,
			GrossValue:      row.GrossValue,
			TaxAmount:       row.TaxAmount,
			TotalDeductions: row.TotalDeductions,
			NetPayable:      row.NetPayable,
		}
		r.Derive(buckets)
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) buckets() []domain.Bucket {
	ranges := s.policy.Get().ValueRanges
	buckets := make([]domain.Bucket, 0, len(ranges))
	for _, vr := range ranges {
		b := domain.Bucket{Label: vr.Label}
		if vr.Max != nil {
			limit := decimal.NewFromFloat(*vr.Max)
			b.Max = &limit
		}
		buckets = append(buckets, b)
	}
	return buckets
}

func (s *Service) ExportAnalysis(ctx context.Context, filter domain.Filter) (*domain.File, error) {
	rows, err := s.Analysis(ctx, filter)
	if err != nil {
		return nil, err
	}
	content, err := analysisWorkbook(rows)
	if err != nil {
		return nil, fmt.Errorf("render analysis workbook: %w", err)
	}
	return &domain.File{
		Name:        "statement-analysis.xlsx",
		ContentType: domain.ContentTypeXLSX,
		Content:     content,
	}, nil
}

func (s *Service) ExportStatement(ctx context.Context, statementID snowflake.ID) (*domain.File, error) {
	st, names, err := s.load(ctx, statementID)
	if err != nil {
		return nil, err
	}
	content, err := statementWorkbook(st, names)
	if err != nil {
		return nil, fmt.Errorf("render statement workbook: %w", err)
	}
	return &domain.File{
		Name:        fileName(st, names, "xlsx"),
		ContentType: domain.ContentTypeXLSX,
		Content:     content,
	}, nil
}

func (s *Service) RenderStatementPDF(ctx context.Context, statementID snowflake.ID) (*domain.File, error) {
	st, names, err := s.load(ctx, statementID)
	if err != nil {
		return nil, err
	}
	content, err := s.pdf.RenderStatement(ctx, document(st, names))
	if err != nil {
		s.log.Warn("failed to render statement pdf", zap.String("statement_id", st.ID.String()), zap.Error(err))
		return nil, err
	}
	return &domain.File{
		Name:        fileName(st, names, "pdf"),
		ContentType: domain.ContentTypePDF,
		Content:     content,
	}, nil
}

// labels carries the display names resolved for one statement.
type labels struct {
	company    string
	project    string
	workType   string
	contractor string
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*statementdomain.Statement, labels, error) {
	st, err := s.statements.Get(ctx, id)
	if err != nil {
		if errors.Is(err, statementdomain.ErrNotFound) {
			return nil, labels{}, domain.ErrNotFound
		}
		return nil, labels{}, err
	}

	var names labels
	if company, err := s.masterData.GetCompany(ctx, st.CompanyID); err != nil {
		return nil, labels{}, err
	} else if company != nil {
		names.company = company.Name
	}
	if project, err := s.masterData.GetProject(ctx, st.ProjectID); err != nil {
		return nil, labels{}, err
	} else if project != nil {
		names.project = project.Name
	}
	if workType, err := s.masterData.GetWorkType(ctx, st.WorkTypeID); err != nil {
		return nil, labels{}, err
	} else if workType != nil {
		names.workType = workType.Name
	}
	if contractor, err := s.masterData.GetContractor(ctx, st.ContractorID); err != nil {
		return nil, labels{}, err
	} else if contractor != nil {
		names.contractor = contractor.Name
	}
	return st, names, nil
}

// fileName builds e.g. "p1-wt1-001-acme-builders.xlsx".
func fileName(st *statementdomain.Statement, names labels, ext string) string {
	base := slug.Make(st.Number + " " + names.contractor)
	if base == "" {
		base = "statement"
	}
	return base + "." + ext
}

func document(st *statementdomain.Statement, names labels) pdf.StatementDocument {
	doc := pdf.StatementDocument{
		CompanyName:             names.company,
		Number:                  st.Number,
		Status:                  string(st.Status),
		StatementDate:           st.StatementDate.Format(time.DateOnly),
		Period:                  st.PeriodFrom.Format(time.DateOnly) + " - " + st.PeriodTo.Format(time.DateOnly),
		ProjectName:             names.project,
		WorkTypeName:            names.workType,
		ContractorName:          names.contractor,
		ContractorType:          string(st.ContractorType),
		GrossValue:              st.GrossValue.StringFixed(2),
		TaxAmount:               st.TaxAmount.StringFixed(2),
		Subtotal:                st.Subtotal.StringFixed(2),
		AdvancePaymentDeduction: st.AdvancePaymentDeduction.StringFixed(2),
		Retention:               st.Retention.StringFixed(2),
		OtherDeductions:         st.OtherDeductions.StringFixed(2),
		TotalDeductions:         st.TotalDeductions.StringFixed(2),
		NetPayable:              st.NetPayable.StringFixed(2),
		ContractorSignature:     st.ContractorSignature,
		ConsultantSignature:     st.ConsultantSignature,
		ProjectOwnerSignature:   st.ProjectOwnerSignature,
	}
	for _, l := range st.Lines {
		doc.Lines = append(doc.Lines, pdf.StatementDocumentLine{
			Description:  l.Description,
			Unit:         l.Unit,
			ContractQty:  l.ContractQty.String(),
			PrevQty:      l.PrevQty.String(),
			CurrentQty:   l.CurrentQty.String(),
			TotalQty:     l.TotalQty.String(),
			Progress:     l.ProgressPercent.StringFixed(2),
			UnitPrice:    l.UnitPrice.StringFixed(2),
			CurrentValue: l.CurrentValue.StringFixed(2),
			TotalValue:   l.TotalValue.StringFixed(2),
		})
	}
	return doc
}
