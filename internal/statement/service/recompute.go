package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	deductiondomain "github.com/smallbiznis/sitebill/internal/deduction/domain"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	quantitydomain "github.com/smallbiznis/sitebill/internal/quantity/domain"
	"github.com/smallbiznis/sitebill/internal/statement/domain"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
	"gorm.io/gorm"
)

func keyFor(st *domain.Statement, productID snowflake.ID) quantitydomain.Key {
	return quantitydomain.Key{
		ProjectID:    st.ProjectID,
		WorkTypeID:   st.WorkTypeID,
		ContractorID: st.ContractorID,
		ProductID:    productID,
	}
}

// recomputeLines refreshes contract and previous quantities for every line
// and re-derives the line figures.
func (s *Service) recomputeLines(ctx context.Context, tx *gorm.DB, st *domain.Statement) error {
	for i := range st.Lines {
		line := &st.Lines[i]
		key := keyFor(st, line.ProductID)

		contract, err := s.quantities.ContractQuantity(ctx, tx, key)
		if err != nil {
			return err
		}
		prev, err := s.quantities.PreviousQuantity(ctx, tx, key, st.StatementDate, st.ID)
		if err != nil {
			return err
		}
		figures, err := domain.ComputeLine(domain.LineInput{
			Label:       line.Description,
			ContractQty: contract,
			PrevQty:     prev,
			CurrentQty:  line.CurrentQty,
			UnitPrice:   line.UnitPrice,
		})
		if err != nil {
			return err
		}
		line.Apply(figures)
	}
	return nil
}

func grossOf(st *domain.Statement) decimal.Decimal {
	return domain.Aggregate(domain.AggregateInput{LineValues: st.LineValues()}).Gross
}

// applyTotals aggregates the header. With retentionTrigger set the retention
// amount is re-derived from the percentage; otherwise the stored value wins.
func (s *Service) applyTotals(st *domain.Statement, taxes []taxdomain.Tax, retentionTrigger bool) domain.Totals {
	if retentionTrigger {
		st.Retention = domain.RetentionFor(grossOf(st), st.RetentionPercentage)
	}
	totals := domain.Aggregate(domain.AggregateInput{
		LineValues: st.LineValues(),
		Taxes:      taxes,
		Advance:    st.AdvancePaymentDeduction,
		Retention:  st.Retention,
		Other:      st.OtherDeductions,
	})
	st.ApplyTotals(totals)
	return totals
}

// refreshDraft reruns the pipeline after a line edit.
func (s *Service) refreshDraft(ctx context.Context, tx *gorm.DB, st *domain.Statement) error {
	taxes, err := s.loadTaxes(ctx, tx, st.CompanyID, st.TaxIDs)
	if err != nil {
		return err
	}
	previousGross := st.GrossValue
	if err := s.recomputeLines(ctx, tx, st); err != nil {
		return err
	}
	s.applyTotals(st, taxes, !previousGross.Equal(grossOf(st)))
	return nil
}

// persistDraft writes the header and every line. The line whose id is
// inserted is created rather than updated.
func (s *Service) persistDraft(ctx context.Context, tx *gorm.DB, st *domain.Statement, inserted *snowflake.ID) error {
	now := s.clock.Now()
	st.UpdatedAt = now
	if err := s.repo.UpdateHeader(ctx, tx, st); err != nil {
		return err
	}
	for i := range st.Lines {
		line := &st.Lines[i]
		if inserted != nil && line.ID == *inserted {
			if err := s.repo.InsertLine(ctx, tx, line); err != nil {
				return err
			}
			continue
		}
		line.UpdatedAt = now
		if err := s.repo.SaveLine(ctx, tx, line); err != nil {
			return err
		}
	}
	return nil
}

// applyDeductionConfig snapshots the resolved configuration onto the
// statement. Drafts without a configuration fall back to the policy default
// percentage; approval insists on a real configuration.
func (s *Service) applyDeductionConfig(ctx context.Context, tx *gorm.DB, st *domain.Statement) error {
	cfg, err := s.deductions.Resolve(ctx, tx, st.CompanyID, st.ProjectID, st.WorkTypeID)
	if errors.Is(err, deductiondomain.ErrNoConfig) {
		st.DeductionConfigID = nil
		st.AdvanceAccountID = nil
		st.RetentionAccountID = nil
		st.OtherAccountID = nil
		st.RetentionPercentage = decimal.NewFromFloat(s.policy.Get().DefaultRetentionPercentage)
		return nil
	}
	if err != nil {
		return err
	}
	id := cfg.ID
	st.DeductionConfigID = &id
	st.RetentionPercentage = cfg.RetentionPercentage
	st.AdvanceAccountID = cfg.AdvanceAccountID
	st.RetentionAccountID = cfg.RetentionAccountID
	st.OtherAccountID = cfg.OtherAccountID
	return nil
}

func (s *Service) lock(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Statement, error) {
	st, err := s.repo.FindByID(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, domain.ErrNotFound
	}
	return st, nil
}

func (s *Service) lockDraft(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Statement, error) {
	st, err := s.lock(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if st.Status != domain.StatusDraft {
		return nil, domain.Invalid(domain.ErrNotEditable, "statement %s is %s, reset it to draft before editing", st.Number, st.Status)
	}
	return st, nil
}

func (s *Service) nextNumber(ctx context.Context, tx *gorm.DB, projectCode, workTypeCode string) (string, error) {
	prefix := domain.NumberPrefix(projectCode, workTypeCode)
	numbers, err := s.repo.NumbersWithPrefix(ctx, tx, prefix)
	if err != nil {
		return "", err
	}
	return domain.NextNumber(projectCode, workTypeCode, domain.LatestNumber(prefix, numbers)), nil
}

func (s *Service) newLine(ctx context.Context, md masterdomain.Repository, st *domain.Statement, req domain.LineRequest) (domain.StatementLine, error) {
	product, err := s.checkProduct(ctx, md, st, req.ProductID, 0)
	if err != nil {
		return domain.StatementLine{}, err
	}
	now := s.clock.Now()
	return domain.StatementLine{
		ID:          s.genID.Generate(),
		StatementID: st.ID,
		Sequence:    nextSequence(st),
		ProductID:   product.ID,
		Description: product.Name,
		Unit:        product.Unit,
		CurrentQty:  req.CurrentQty,
		UnitPrice:   req.UnitPrice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func nextSequence(st *domain.Statement) int {
	seq := 0
	for _, line := range st.Lines {
		if line.Sequence > seq {
			seq = line.Sequence
		}
	}
	return seq + 10
}

// checkProduct validates a product for a line. skipLineID excludes the line
// being edited from the duplicate check.
func (s *Service) checkProduct(ctx context.Context, md masterdomain.Repository, st *domain.Statement, productID, skipLineID snowflake.ID) (*masterdomain.Product, error) {
	product, err := md.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.Active {
		return nil, domain.Invalid(domain.ErrInvalidProduct, "product %s is not available", productID)
	}
	if product.WorkTypeID != st.WorkTypeID {
		return nil, domain.Invalid(domain.ErrProductWorkTypeMismatch, "product %s does not belong to the statement work type", product.Name)
	}
	for _, line := range st.Lines {
		if line.ID != skipLineID && line.ProductID == product.ID {
			return nil, domain.Invalid(domain.ErrDuplicateProduct, "product %s is already billed on this statement", product.Name)
		}
	}
	return product, nil
}

func (s *Service) checkLinesWorkType(ctx context.Context, md masterdomain.Repository, st *domain.Statement) error {
	for _, line := range st.Lines {
		product, err := md.GetProduct(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if product == nil || product.WorkTypeID != st.WorkTypeID {
			return domain.Invalid(domain.ErrProductWorkTypeMismatch, "line %s does not belong to the new work type", line.Description)
		}
	}
	return nil
}

func (s *Service) loadProject(ctx context.Context, md masterdomain.Repository, id snowflake.ID) (*masterdomain.Project, error) {
	project, err := md.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil || !project.Active {
		return nil, domain.Invalid(domain.ErrInvalidProject, "project %s is not available", id)
	}
	return project, nil
}

func (s *Service) loadWorkType(ctx context.Context, md masterdomain.Repository, id snowflake.ID) (*masterdomain.WorkType, error) {
	workType, err := md.GetWorkType(ctx, id)
	if err != nil {
		return nil, err
	}
	if workType == nil || !workType.Active {
		return nil, domain.Invalid(domain.ErrInvalidWorkType, "work type %s is not available", id)
	}
	return workType, nil
}

func (s *Service) checkContractor(ctx context.Context, md masterdomain.Repository, companyID, id snowflake.ID) error {
	contractor, err := md.GetContractor(ctx, id)
	if err != nil {
		return err
	}
	if contractor == nil || !contractor.Active || contractor.CompanyID != companyID {
		return domain.Invalid(domain.ErrInvalidContractor, "contractor %s is not available", id)
	}
	if !contractor.IsCompany {
		return domain.Invalid(domain.ErrInvalidContractor, "contractor %s must be a company", contractor.Name)
	}
	return nil
}

func (s *Service) loadGeneralJournal(ctx context.Context, md masterdomain.Repository, companyID, id snowflake.ID) (*masterdomain.Journal, error) {
	journal, err := md.GetJournal(ctx, id)
	if err != nil {
		return nil, err
	}
	if journal == nil || !journal.Active || journal.CompanyID != companyID {
		return nil, domain.Invalid(domain.ErrInvalidJournal, "journal %s is not available", id)
	}
	if journal.Type != masterdomain.JournalTypeGeneral {
		return nil, domain.Invalid(domain.ErrInvalidJournal, "journal %s is not a general journal", journal.Code)
	}
	return journal, nil
}

// defaultJournal picks the requested journal, then the company default, then
// the first general journal. Having none is allowed until approval.
func (s *Service) defaultJournal(ctx context.Context, md masterdomain.Repository, companyID snowflake.ID, requested *snowflake.ID) (*snowflake.ID, error) {
	if requested != nil {
		journal, err := s.loadGeneralJournal(ctx, md, companyID, *requested)
		if err != nil {
			return nil, err
		}
		return &journal.ID, nil
	}

	company, err := md.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company != nil && company.DefaultJournalID != nil {
		if journal, err := s.loadGeneralJournal(ctx, md, companyID, *company.DefaultJournalID); err == nil {
			return &journal.ID, nil
		}
	}

	journal, err := md.FindFirstJournal(ctx, companyID, masterdomain.JournalTypeGeneral)
	if err != nil {
		return nil, err
	}
	if journal == nil {
		return nil, nil
	}
	return &journal.ID, nil
}

func (s *Service) loadPaymentMethod(ctx context.Context, md masterdomain.Repository, id snowflake.ID) (*masterdomain.PaymentMethod, error) {
	method, err := md.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, err
	}
	if method == nil || !method.Active {
		return nil, domain.Invalid(domain.ErrMissingPaymentMethod, "payment method %s is not available", id)
	}
	return method, nil
}

// loadTaxes returns the taxes in ids order, deduplicated. Every tax must be
// active and belong to the company.
func (s *Service) loadTaxes(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, ids []snowflake.ID) ([]taxdomain.Tax, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	unique := make([]snowflake.ID, 0, len(ids))
	seen := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	found, err := s.taxes.FindByIDs(ctx, tx, unique)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]taxdomain.Tax, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	taxes := make([]taxdomain.Tax, 0, len(unique))
	for _, id := range unique {
		t, ok := byID[id]
		if !ok || !t.Active || t.CompanyID != companyID {
			return nil, domain.Invalid(domain.ErrInvalidTax, "tax %s is not available", id)
		}
		taxes = append(taxes, t)
	}
	return taxes, nil
}
