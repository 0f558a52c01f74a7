package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/sitebill/internal/audit/domain"
	"github.com/smallbiznis/sitebill/internal/clock"
	"github.com/smallbiznis/sitebill/internal/config"
	deductiondomain "github.com/smallbiznis/sitebill/internal/deduction/domain"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	obsmetrics "github.com/smallbiznis/sitebill/internal/observability/metrics"
	"github.com/smallbiznis/sitebill/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/sitebill/internal/payment/domain"
	quantitydomain "github.com/smallbiznis/sitebill/internal/quantity/domain"
	"github.com/smallbiznis/sitebill/internal/statement/domain"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
	"github.com/smallbiznis/sitebill/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const createAttempts = 3

var tracer = otel.Tracer("sitebill/statement")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	MasterData  masterdomain.Repository
	Taxes       taxdomain.Repository
	TaxAccounts taxdomain.AccountResolver
	Quantities  quantitydomain.Service
	Deductions  deductiondomain.Resolver
	Ledger      ledgerdomain.Service
	Payments    paymentdomain.Service
	AuditSvc    auditdomain.Service  `optional:"true"`
	Policy      *config.PolicyHolder `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics  `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	masterData  masterdomain.Repository
	taxes       taxdomain.Repository
	taxAccounts taxdomain.AccountResolver
	quantities  quantitydomain.Service
	deductions  deductiondomain.Resolver
	ledger      ledgerdomain.Service
	payments    paymentdomain.Service
	auditSvc    auditdomain.Service
	policy      *config.PolicyHolder
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	policy := p.Policy
	if policy == nil {
		policy = config.NewStaticPolicyHolder(config.DefaultPolicy())
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("statement.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		masterData:  p.MasterData,
		taxes:       p.Taxes,
		taxAccounts: p.TaxAccounts,
		quantities:  p.Quantities,
		deductions:  p.Deductions,
		ledger:      p.Ledger,
		payments:    p.Payments,
		auditSvc:    p.AuditSvc,
		policy:      policy,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.Create")
	defer span.End()

	if err := validateDates(req.StatementDate, req.PeriodFrom, req.PeriodTo); err != nil {
		return nil, endSpan(span, err)
	}
	contractorType := req.ContractorType
	if contractorType == "" {
		contractorType = domain.ContractorTypeMain
	}
	if !contractorType.Valid() {
		return nil, endSpan(span, domain.Invalid(domain.ErrInvalidContractorType, "unknown contractor type %q", contractorType))
	}
	if err := validateDeductionInputs(req.AdvancePaymentDeduction, req.OtherDeductions); err != nil {
		return nil, endSpan(span, err)
	}
	if req.RetentionPercentage != nil {
		if err := validatePercentage(*req.RetentionPercentage); err != nil {
			return nil, endSpan(span, err)
		}
	}
	if req.Retention != nil && req.Retention.IsNegative() {
		return nil, endSpan(span, domain.Invalid(domain.ErrInvalidAmount, "retention cannot be negative"))
	}

	var (
		created *domain.Statement
		err     error
	)
	for attempt := 1; attempt <= createAttempts; attempt++ {
		created, err = s.create(ctx, req, contractorType)
		if err == nil || !db.IsDuplicateKeyErr(err) {
			break
		}
		s.log.Warn("statement number collided, retrying",
			zap.Int("attempt", attempt),
			zap.String("project_id", req.ProjectID.String()),
		)
	}
	if err != nil {
		return nil, endSpan(span, err)
	}

	s.log.Info("statement created",
		zap.String("statement_id", created.ID.String()),
		zap.String("number", created.Number),
	)
	s.emitAudit(ctx, "statement.created", created, req.Actor, nil)
	return created, nil
}

func (s *Service) create(ctx context.Context, req domain.CreateRequest, contractorType domain.ContractorType) (*domain.Statement, error) {
	var created *domain.Statement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		md := s.masterData.WithTx(tx)

		project, err := s.loadProject(ctx, md, req.ProjectID)
		if err != nil {
			return err
		}
		workType, err := s.loadWorkType(ctx, md, req.WorkTypeID)
		if err != nil {
			return err
		}
		if err := s.checkContractor(ctx, md, project.CompanyID, req.ContractorID); err != nil {
			return err
		}
		journalID, err := s.defaultJournal(ctx, md, project.CompanyID, req.JournalID)
		if err != nil {
			return err
		}
		if req.PaymentMethodID != nil {
			if _, err := s.loadPaymentMethod(ctx, md, *req.PaymentMethodID); err != nil {
				return err
			}
		}
		taxes, err := s.loadTaxes(ctx, tx, project.CompanyID, req.TaxIDs)
		if err != nil {
			return err
		}

		number, err := s.nextNumber(ctx, tx, project.Code, workType.Code)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		st := &domain.Statement{
			ID:                      s.genID.Generate(),
			CompanyID:               project.CompanyID,
			Number:                  number,
			ProjectID:               project.ID,
			WorkTypeID:              workType.ID,
			ContractorID:            req.ContractorID,
			ContractorType:          contractorType,
			StatementDate:           dateOnly(req.StatementDate),
			PeriodFrom:              dateOnly(req.PeriodFrom),
			PeriodTo:                dateOnly(req.PeriodTo),
			AdvancePaymentDeduction: req.AdvancePaymentDeduction.Round(2),
			OtherDeductions:         req.OtherDeductions.Round(2),
			JournalID:               journalID,
			PaymentMethodID:         req.PaymentMethodID,
			PaymentNotes:            req.PaymentNotes,
			ContractorSignature:     req.ContractorSignature,
			ConsultantSignature:     req.ConsultantSignature,
			ProjectOwnerSignature:   req.ProjectOwnerSignature,
			Status:                  domain.StatusDraft,
			CreatedBy:               actorOrSystem(req.Actor),
			CreatedAt:               now,
			UpdatedAt:               now,
			Lines:                   []domain.StatementLine{},
			TaxIDs:                  taxIDs(taxes),
		}
		if err := s.applyDeductionConfig(ctx, tx, st); err != nil {
			return err
		}
		if req.RetentionPercentage != nil {
			st.RetentionPercentage = *req.RetentionPercentage
		}

		for _, lineReq := range req.Lines {
			line, err := s.newLine(ctx, md, st, lineReq)
			if err != nil {
				return err
			}
			st.Lines = append(st.Lines, line)
		}

		if err := s.recomputeLines(ctx, tx, st); err != nil {
			return err
		}
		s.applyTotals(st, taxes, true)
		if req.Retention != nil {
			st.Retention = req.Retention.Round(2)
			s.applyTotals(st, taxes, false)
		}

		if err := s.repo.Insert(ctx, tx, st); err != nil {
			return err
		}
		for i := range st.Lines {
			if err := s.repo.InsertLine(ctx, tx, &st.Lines[i]); err != nil {
				return err
			}
		}
		if err := s.repo.ReplaceTaxes(ctx, tx, st.ID, st.TaxIDs); err != nil {
			return err
		}
		created = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.Update", attribute.String("statement_id", id.String()))
	defer span.End()

	var updated *domain.Statement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.lockDraft(ctx, tx, id)
		if err != nil {
			return err
		}
		md := s.masterData.WithTx(tx)

		scopeChanged := false
		if req.ProjectID != nil && *req.ProjectID != st.ProjectID {
			project, err := s.loadProject(ctx, md, *req.ProjectID)
			if err != nil {
				return err
			}
			if project.CompanyID != st.CompanyID {
				return domain.Invalid(domain.ErrInvalidProject, "project %s belongs to another company", project.Code)
			}
			st.ProjectID = project.ID
			scopeChanged = true
		}
		if req.WorkTypeID != nil && *req.WorkTypeID != st.WorkTypeID {
			workType, err := s.loadWorkType(ctx, md, *req.WorkTypeID)
			if err != nil {
				return err
			}
			st.WorkTypeID = workType.ID
			scopeChanged = true
			if err := s.checkLinesWorkType(ctx, md, st); err != nil {
				return err
			}
		}
		if req.ContractorID != nil && *req.ContractorID != st.ContractorID {
			if err := s.checkContractor(ctx, md, st.CompanyID, *req.ContractorID); err != nil {
				return err
			}
			st.ContractorID = *req.ContractorID
		}
		if req.ContractorType != nil {
			if !req.ContractorType.Valid() {
				return domain.Invalid(domain.ErrInvalidContractorType, "unknown contractor type %q", *req.ContractorType)
			}
			st.ContractorType = *req.ContractorType
		}

		if req.StatementDate != nil {
			st.StatementDate = dateOnly(*req.StatementDate)
		}
		if req.PeriodFrom != nil {
			st.PeriodFrom = dateOnly(*req.PeriodFrom)
		}
		if req.PeriodTo != nil {
			st.PeriodTo = dateOnly(*req.PeriodTo)
		}
		if err := validateDates(st.StatementDate, st.PeriodFrom, st.PeriodTo); err != nil {
			return err
		}

		if req.JournalID != nil {
			if _, err := s.loadGeneralJournal(ctx, md, st.CompanyID, *req.JournalID); err != nil {
				return err
			}
			st.JournalID = req.JournalID
		}
		if req.PaymentMethodID != nil {
			if _, err := s.loadPaymentMethod(ctx, md, *req.PaymentMethodID); err != nil {
				return err
			}
			st.PaymentMethodID = req.PaymentMethodID
		}

		taxesChanged := false
		if req.TaxIDs != nil {
			st.TaxIDs = *req.TaxIDs
			taxesChanged = true
		}
		taxes, err := s.loadTaxes(ctx, tx, st.CompanyID, st.TaxIDs)
		if err != nil {
			return err
		}
		st.TaxIDs = taxIDs(taxes)

		if req.AdvancePaymentDeduction != nil {
			st.AdvancePaymentDeduction = req.AdvancePaymentDeduction.Round(2)
		}
		if req.OtherDeductions != nil {
			st.OtherDeductions = req.OtherDeductions.Round(2)
		}
		if err := validateDeductionInputs(st.AdvancePaymentDeduction, st.OtherDeductions); err != nil {
			return err
		}

		percentageChanged := false
		if scopeChanged {
			previous := st.RetentionPercentage
			if err := s.applyDeductionConfig(ctx, tx, st); err != nil {
				return err
			}
			percentageChanged = !previous.Equal(st.RetentionPercentage)
		}
		if req.RetentionPercentage != nil {
			if err := validatePercentage(*req.RetentionPercentage); err != nil {
				return err
			}
			percentageChanged = percentageChanged || !req.RetentionPercentage.Equal(st.RetentionPercentage)
			st.RetentionPercentage = *req.RetentionPercentage
		}

		if req.PaymentNotes != nil {
			st.PaymentNotes = *req.PaymentNotes
		}
		if req.ContractorSignature != nil {
			st.ContractorSignature = *req.ContractorSignature
		}
		if req.ConsultantSignature != nil {
			st.ConsultantSignature = *req.ConsultantSignature
		}
		if req.ProjectOwnerSignature != nil {
			st.ProjectOwnerSignature = *req.ProjectOwnerSignature
		}

		previousGross := st.GrossValue
		if err := s.recomputeLines(ctx, tx, st); err != nil {
			return err
		}
		s.applyTotals(st, taxes, percentageChanged || !previousGross.Equal(grossOf(st)))
		if req.Retention != nil {
			if req.Retention.IsNegative() {
				return domain.Invalid(domain.ErrInvalidAmount, "retention cannot be negative")
			}
			st.Retention = req.Retention.Round(2)
			s.applyTotals(st, taxes, false)
		}

		if err := s.persistDraft(ctx, tx, st, nil); err != nil {
			return err
		}
		if taxesChanged {
			if err := s.repo.ReplaceTaxes(ctx, tx, st.ID, st.TaxIDs); err != nil {
				return err
			}
		}
		updated = st
		return nil
	})
	if err != nil {
		return nil, endSpan(span, err)
	}
	return updated, nil
}

func (s *Service) AddLine(ctx context.Context, id snowflake.ID, req domain.LineRequest) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.AddLine", attribute.String("statement_id", id.String()))
	defer span.End()

	var updated *domain.Statement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.lockDraft(ctx, tx, id)
		if err != nil {
			return err
		}
		line, err := s.newLine(ctx, s.masterData.WithTx(tx), st, req)
		if err != nil {
			return err
		}
		st.Lines = append(st.Lines, line)

		if err := s.refreshDraft(ctx, tx, st); err != nil {
			return err
		}
		if err := s.persistDraft(ctx, tx, st, &line.ID); err != nil {
			return err
		}
		updated = st
		return nil
	})
	if err != nil {
		return nil, endSpan(span, err)
	}
	return updated, nil
}

func (s *Service) UpdateLine(ctx context.Context, id, lineID snowflake.ID, req domain.LineUpdate) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.UpdateLine", attribute.String("statement_id", id.String()))
	defer span.End()

	var updated *domain.Statement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.lockDraft(ctx, tx, id)
		if err != nil {
			return err
		}
		idx := lineIndex(st, lineID)
		if idx < 0 {
			return domain.ErrLineNotFound
		}
		line := &st.Lines[idx]

		if req.ProductID != nil && *req.ProductID != line.ProductID {
			product, err := s.checkProduct(ctx, s.masterData.WithTx(tx), st, *req.ProductID, lineID)
			if err != nil {
				return err
			}
			line.ProductID = product.ID
			line.Description = product.Name
			line.Unit = product.Unit
		}
		if req.CurrentQty != nil {
			line.CurrentQty = *req.CurrentQty
		}
		if req.UnitPrice != nil {
			line.UnitPrice = *req.UnitPrice
		}
		line.UpdatedAt = s.clock.Now()

		if err := s.refreshDraft(ctx, tx, st); err != nil {
			return err
		}
		if err := s.persistDraft(ctx, tx, st, nil); err != nil {
			return err
		}
		updated = st
		return nil
	})
	if err != nil {
		return nil, endSpan(span, err)
	}
	return updated, nil
}

func (s *Service) RemoveLine(ctx context.Context, id, lineID snowflake.ID) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.RemoveLine", attribute.String("statement_id", id.String()))
	defer span.End()

	var updated *domain.Statement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.lockDraft(ctx, tx, id)
		if err != nil {
			return err
		}
		idx := lineIndex(st, lineID)
		if idx < 0 {
			return domain.ErrLineNotFound
		}
		st.Lines = append(st.Lines[:idx], st.Lines[idx+1:]...)
		if err := s.repo.DeleteLine(ctx, tx, st.ID, lineID); err != nil {
			return err
		}

		if err := s.refreshDraft(ctx, tx, st); err != nil {
			return err
		}
		if err := s.persistDraft(ctx, tx, st, nil); err != nil {
			return err
		}
		updated = st
		return nil
	})
	if err != nil {
		return nil, endSpan(span, err)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Statement, error) {
	st, err := s.repo.FindByID(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, domain.ErrNotFound
	}
	return st, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Statement, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.Invalid(domain.ErrInvalidStatus, "unknown status %q", *filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, s.db, filter)
}

// Preview recomputes a draft without saving it. Statements past draft are
// returned as stored because their figures are frozen at confirmation.
func (s *Service) Preview(ctx context.Context, id snowflake.ID) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.Preview", attribute.String("statement_id", id.String()))
	defer span.End()

	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, endSpan(span, err)
	}
	if st.Status != domain.StatusDraft {
		return st, nil
	}
	taxes, err := s.loadTaxes(ctx, s.db, st.CompanyID, st.TaxIDs)
	if err != nil {
		return nil, endSpan(span, err)
	}
	previousGross := st.GrossValue
	if err := s.recomputeLines(ctx, s.db, st); err != nil {
		return nil, endSpan(span, err)
	}
	s.applyTotals(st, taxes, !previousGross.Equal(grossOf(st)))
	return st, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, st *domain.Statement, actor string, extra map[string]any) {
	if s.auditSvc == nil || st == nil {
		return
	}
	metadata := map[string]any{
		"number":        st.Number,
		"status":        string(st.Status),
		"project_id":    st.ProjectID.String(),
		"contractor_id": st.ContractorID.String(),
		"net_payable":   st.NetPayable.StringFixed(2),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	companyID := st.CompanyID
	err := s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		CompanyID:  &companyID,
		Actor:      actor,
		Action:     action,
		TargetType: "statement",
		TargetID:   st.ID.String(),
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("statement_id", st.ID.String()),
			zap.Error(err),
		)
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(tracing.SafeAttributes(attrs...)...))
}

// endSpan marks the span failed and hands err back.
func endSpan(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	if !domain.IsValidation(err) && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func validateDates(statementDate, from, to time.Time) error {
	if statementDate.IsZero() {
		return domain.Invalid(domain.ErrInvalidDate, "statement date is required")
	}
	if from.IsZero() || to.IsZero() {
		return domain.Invalid(domain.ErrInvalidPeriod, "work period dates are required")
	}
	if dateOnly(from).After(dateOnly(to)) {
		return domain.Invalid(domain.ErrInvalidPeriod, "work period 'From' date must be before 'To' date")
	}
	return nil
}

func validateDeductionInputs(advance, other decimal.Decimal) error {
	if advance.IsNegative() {
		return domain.Invalid(domain.ErrInvalidAmount, "advance payment deduction cannot be negative")
	}
	if other.IsNegative() {
		return domain.Invalid(domain.ErrInvalidAmount, "other deductions cannot be negative")
	}
	return nil
}

func validatePercentage(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return domain.Invalid(domain.ErrInvalidPercentage, "retention percentage must be between 0 and 100")
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return "system"
	}
	return actor
}

func lineIndex(st *domain.Statement, lineID snowflake.ID) int {
	for i := range st.Lines {
		if st.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func taxIDs(taxes []taxdomain.Tax) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(taxes))
	for _, t := range taxes {
		ids = append(ids, t.ID)
	}
	return ids
}
