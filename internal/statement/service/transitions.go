package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	deductiondomain "github.com/smallbiznis/sitebill/internal/deduction/domain"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	paymentdomain "github.com/smallbiznis/sitebill/internal/payment/domain"
	"github.com/smallbiznis/sitebill/internal/statement/domain"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Confirm freezes a draft and accrues its quantities into the ledger.
func (s *Service) Confirm(ctx context.Context, id snowflake.ID, actor string) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.Confirm", attribute.String("statement_id", id.String()))
	defer span.End()

	actor = actorOrSystem(actor)
	var confirmed *domain.Statement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if st.Status != domain.StatusDraft {
			return domain.Invalid(domain.ErrInvalidTransition, "only draft statements can be confirmed, %s is %s", st.Number, st.Status)
		}

		if err := s.refreshDraft(ctx, tx, st); err != nil {
			return err
		}
		if err := s.persistDraft(ctx, tx, st, nil); err != nil {
			return err
		}
		if err := s.accrue(ctx, tx, st, true); err != nil {
			return err
		}

		now := s.clock.Now()
		ok, err := s.repo.Transition(ctx, tx, st.ID, domain.StatusDraft, map[string]any{
			"status":       domain.StatusConfirmed,
			"confirmed_by": actor,
			"confirmed_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Invalid(domain.ErrInvalidTransition, "statement %s changed during confirmation", st.Number)
		}
		st.Status = domain.StatusConfirmed
		st.ConfirmedBy = &actor
		st.ConfirmedAt = &now
		st.UpdatedAt = now
		confirmed = st
		return nil
	})
	if err != nil {
		s.obsMetrics.RecordTransition(ctx, "confirm", "failed")
		return nil, endSpan(span, err)
	}

	s.obsMetrics.RecordTransition(ctx, "confirm", string(confirmed.Status))
	s.log.Info("statement confirmed",
		zap.String("statement_id", confirmed.ID.String()),
		zap.String("number", confirmed.Number),
		zap.String("status", string(confirmed.Status)),
	)
	s.emitAudit(ctx, "statement.confirmed", confirmed, actor, map[string]any{
		"previous_status": string(domain.StatusDraft),
	})
	return confirmed, nil
}

// ResetToDraft reverses the accrual of a confirmed statement. Line figures
// keep their confirmation values until the next edit or confirmation.
func (s *Service) ResetToDraft(ctx context.Context, id snowflake.ID, actor string) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.ResetToDraft", attribute.String("statement_id", id.String()))
	defer span.End()

	actor = actorOrSystem(actor)
	var reset *domain.Statement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if st.Status.Locked() {
			return domain.Invalid(domain.ErrStatementLocked, "statement %s is %s and cannot be reset to draft", st.Number, st.Status)
		}
		if st.Status != domain.StatusConfirmed {
			return domain.Invalid(domain.ErrInvalidTransition, "only confirmed statements can be reset, %s is %s", st.Number, st.Status)
		}

		if err := s.accrue(ctx, tx, st, false); err != nil {
			return err
		}

		now := s.clock.Now()
		ok, err := s.repo.Transition(ctx, tx, st.ID, domain.StatusConfirmed, map[string]any{
			"status":       domain.StatusDraft,
			"confirmed_by": nil,
			"confirmed_at": nil,
			"updated_at":   now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Invalid(domain.ErrInvalidTransition, "statement %s changed during reset", st.Number)
		}
		st.Status = domain.StatusDraft
		st.ConfirmedBy = nil
		st.ConfirmedAt = nil
		st.UpdatedAt = now
		reset = st
		return nil
	})
	if err != nil {
		s.obsMetrics.RecordTransition(ctx, "reset", "failed")
		return nil, endSpan(span, err)
	}

	s.obsMetrics.RecordTransition(ctx, "reset", string(reset.Status))
	s.log.Info("statement reset to draft",
		zap.String("statement_id", reset.ID.String()),
		zap.String("number", reset.Number),
	)
	s.emitAudit(ctx, "statement.reset", reset, actor, map[string]any{
		"previous_status": string(domain.StatusConfirmed),
	})
	return reset, nil
}

// Approve posts the accounting entry of a confirmed statement. Approving an
// already approved or paid statement returns it unchanged.
func (s *Service) Approve(ctx context.Context, id snowflake.ID, actor string) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.Approve", attribute.String("statement_id", id.String()))
	defer span.End()

	actor = actorOrSystem(actor)
	var (
		approved *domain.Statement
		noop     bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if st.Status.Locked() {
			approved, noop = st, true
			return nil
		}
		if st.Status != domain.StatusConfirmed {
			return domain.Invalid(domain.ErrInvalidTransition, "only confirmed statements can be approved, %s is %s", st.Number, st.Status)
		}
		if st.JournalID == nil {
			return domain.Invalid(domain.ErrMissingJournal, "please select a journal before approving")
		}
		if _, err := s.loadGeneralJournal(ctx, s.masterData.WithTx(tx), st.CompanyID, *st.JournalID); err != nil {
			return err
		}
		if err := s.completeDeductionAccounts(ctx, tx, st); err != nil {
			return err
		}
		if st.NetPayable.IsNegative() {
			return domain.Invalid(domain.ErrNegativeNetPayable, "net payable %s is negative, deductions exceed the billed amount", st.NetPayable.StringFixed(2))
		}

		lines, err := s.buildPosting(ctx, tx, st)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		updates := map[string]any{
			"status":               domain.StatusApproved,
			"approved_by":          actor,
			"approved_at":          now,
			"updated_at":           now,
			"deduction_config_id":  st.DeductionConfigID,
			"advance_account_id":   st.AdvanceAccountID,
			"retention_account_id": st.RetentionAccountID,
			"other_account_id":     st.OtherAccountID,
		}
		if len(lines) > 0 {
			entryID, err := s.postEntry(ctx, tx, st, lines)
			if err != nil {
				return err
			}
			updates["ledger_entry_id"] = entryID
			st.LedgerEntryID = &entryID
		}

		ok, err := s.repo.Transition(ctx, tx, st.ID, domain.StatusConfirmed, updates)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Invalid(domain.ErrInvalidTransition, "statement %s was approved concurrently", st.Number)
		}
		st.Status = domain.StatusApproved
		st.ApprovedBy = &actor
		st.ApprovedAt = &now
		st.UpdatedAt = now
		approved = st
		return nil
	})
	if err != nil {
		s.obsMetrics.RecordTransition(ctx, "approve", "failed")
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidTransition) {
			s.obsMetrics.RecordPostingFailure(ctx, failureReason(err))
		}
		if errors.Is(err, domain.ErrUnbalancedEntry) {
			s.log.Error("statement posting unbalanced", zap.String("statement_id", id.String()), zap.Error(err))
		}
		return nil, endSpan(span, err)
	}
	if noop {
		return approved, nil
	}

	s.obsMetrics.RecordTransition(ctx, "approve", string(approved.Status))
	fields := []zap.Field{
		zap.String("statement_id", approved.ID.String()),
		zap.String("number", approved.Number),
		zap.String("status", string(approved.Status)),
	}
	extra := map[string]any{"previous_status": string(domain.StatusConfirmed)}
	if approved.LedgerEntryID != nil {
		fields = append(fields, zap.String("ledger_entry_id", approved.LedgerEntryID.String()))
		extra["ledger_entry_id"] = approved.LedgerEntryID.String()
	}
	s.log.Info("statement approved", fields...)
	s.emitAudit(ctx, "statement.approved", approved, actor, extra)
	return approved, nil
}

// completeDeductionAccounts fills accounts the statement snapshot is missing
// from the resolved configuration. Posting requires a configuration.
func (s *Service) completeDeductionAccounts(ctx context.Context, tx *gorm.DB, st *domain.Statement) error {
	cfg, err := s.deductions.Resolve(ctx, tx, st.CompanyID, st.ProjectID, st.WorkTypeID)
	if errors.Is(err, deductiondomain.ErrNoConfig) {
		return &domain.ConfigurationError{
			Err:     domain.ErrMissingConfiguration,
			Details: fmt.Sprintf("no deductions configuration applies to statement %s", st.Number),
		}
	}
	if err != nil {
		return err
	}
	if st.DeductionConfigID == nil {
		id := cfg.ID
		st.DeductionConfigID = &id
	}
	if st.AdvanceAccountID == nil {
		st.AdvanceAccountID = cfg.AdvanceAccountID
	}
	if st.RetentionAccountID == nil {
		st.RetentionAccountID = cfg.RetentionAccountID
	}
	if st.OtherAccountID == nil {
		st.OtherAccountID = cfg.OtherAccountID
	}
	return nil
}

func (s *Service) buildPosting(ctx context.Context, tx *gorm.DB, st *domain.Statement) ([]domain.PostingLine, error) {
	md := s.masterData.WithTx(tx)

	contractor, err := md.GetContractor(ctx, st.ContractorID)
	if err != nil {
		return nil, err
	}
	if contractor == nil {
		return nil, domain.Invalid(domain.ErrInvalidContractor, "contractor %s is not available", st.ContractorID)
	}

	products := make([]domain.ProductPosting, 0, len(st.Lines))
	for _, line := range st.Lines {
		product, err := md.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, domain.Invalid(domain.ErrInvalidProduct, "product %s is not available", line.ProductID)
		}
		products = append(products, domain.ProductPosting{
			Name:         product.Name,
			AccountID:    product.PostingAccountID(),
			CurrentValue: line.CurrentValue,
		})
	}

	taxes, err := s.taxes.FindByIDs(ctx, tx, st.TaxIDs)
	if err != nil {
		return nil, err
	}
	taxPostings, err := s.taxPostings(ctx, tx, st, taxes)
	if err != nil {
		return nil, err
	}

	var partnerAccount *snowflake.ID
	if st.ContractorType == domain.ContractorTypeSub {
		partnerAccount = contractor.PayableAccountID
	} else {
		partnerAccount = contractor.ReceivableAccountID
	}

	return domain.BuildPosting(domain.PostingInput{
		Reference:           st.Number,
		Products:            products,
		Taxes:               taxPostings,
		Gross:               st.GrossValue,
		TaxAmount:           st.TaxAmount,
		TotalDeductions:     st.TotalDeductions,
		NetPayable:          st.NetPayable,
		Advance:             st.AdvancePaymentDeduction,
		AdvanceAccountID:    st.AdvanceAccountID,
		Retention:           st.Retention,
		RetentionAccountID:  st.RetentionAccountID,
		Other:               st.OtherDeductions,
		OtherAccountID:      st.OtherAccountID,
		ContractorID:        contractor.ID,
		ContractorName:      contractor.Name,
		ContractorAccountID: partnerAccount,
	})
}

func (s *Service) taxPostings(ctx context.Context, tx *gorm.DB, st *domain.Statement, taxes []taxdomain.Tax) ([]domain.TaxPosting, error) {
	postings := make([]domain.TaxPosting, 0, len(taxes))
	for _, t := range taxes {
		amount := t.Compute(st.GrossValue)
		if !amount.IsPositive() {
			continue
		}
		accountID, err := s.taxAccounts.ResolveAccount(ctx, tx, t)
		if errors.Is(err, taxdomain.ErrNoTaxAccount) {
			return nil, domain.Invalid(domain.ErrMissingTaxAccount, "no account configured for tax %s", t.Name)
		}
		if err != nil {
			return nil, err
		}
		postings = append(postings, domain.TaxPosting{Name: t.Name, AccountID: accountID, Amount: amount})
	}
	return postings, nil
}

func (s *Service) postEntry(ctx context.Context, tx *gorm.DB, st *domain.Statement, lines []domain.PostingLine) (snowflake.ID, error) {
	inputs := make([]ledgerdomain.LineInput, 0, len(lines))
	for _, l := range lines {
		inputs = append(inputs, ledgerdomain.LineInput{
			AccountID: l.AccountID,
			PartnerID: l.PartnerID,
			Label:     l.Label,
			Debit:     l.Debit,
			Credit:    l.Credit,
		})
	}
	entryID, err := s.ledger.CreateEntry(ctx, tx, ledgerdomain.CreateEntryInput{
		CompanyID:  st.CompanyID,
		JournalID:  *st.JournalID,
		Date:       st.StatementDate,
		Reference:  st.Number,
		SourceType: ledgerdomain.SourceTypeStatement,
		SourceID:   st.ID,
		Lines:      inputs,
	})
	if err != nil {
		return 0, err
	}
	if err := s.ledger.Post(ctx, tx, entryID); err != nil && !errors.Is(err, ledgerdomain.ErrEntryPosted) {
		return 0, err
	}
	return entryID, nil
}

// MarkPaid settles an approved statement with a posted payment.
func (s *Service) MarkPaid(ctx context.Context, id snowflake.ID, actor string, req domain.MarkPaidRequest) (*domain.Statement, error) {
	ctx, span := startSpan(ctx, "statement.MarkPaid", attribute.String("statement_id", id.String()))
	defer span.End()

	actor = actorOrSystem(actor)
	var paid *domain.Statement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if st.Status != domain.StatusApproved {
			return domain.Invalid(domain.ErrInvalidTransition, "only approved statements can be marked as paid, %s is %s", st.Number, st.Status)
		}

		methodID := st.PaymentMethodID
		if req.PaymentMethodID != nil {
			methodID = req.PaymentMethodID
		}
		if methodID == nil {
			return domain.Invalid(domain.ErrMissingPaymentMethod, "please select a payment method")
		}
		method, err := s.loadPaymentMethod(ctx, s.masterData.WithTx(tx), *methodID)
		if err != nil {
			return err
		}

		direction := paymentdomain.DirectionInbound
		if st.ContractorType == domain.ContractorTypeSub {
			direction = paymentdomain.DirectionOutbound
		}
		if !method.PaymentType.Allows(string(direction)) {
			return domain.Invalid(domain.ErrPaymentTypeMismatch, "payment method %s does not allow %s payments", method.Code, direction)
		}

		now := s.clock.Now()
		updates := map[string]any{
			"status":            domain.StatusPaid,
			"paid_by":           actor,
			"paid_at":           now,
			"updated_at":        now,
			"payment_method_id": method.ID,
		}
		if req.PaymentNotes != nil {
			updates["payment_notes"] = *req.PaymentNotes
			st.PaymentNotes = *req.PaymentNotes
		}

		if st.NetPayable.IsPositive() {
			paymentID, err := s.settle(ctx, tx, st, method, direction)
			if err != nil {
				return err
			}
			updates["payment_id"] = paymentID
			st.PaymentID = &paymentID
		}

		ok, err := s.repo.Transition(ctx, tx, st.ID, domain.StatusApproved, updates)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Invalid(domain.ErrInvalidTransition, "statement %s was paid concurrently", st.Number)
		}
		st.Status = domain.StatusPaid
		st.PaymentMethodID = &method.ID
		st.PaidBy = &actor
		st.PaidAt = &now
		st.UpdatedAt = now
		paid = st
		return nil
	})
	if err != nil {
		s.obsMetrics.RecordTransition(ctx, "mark_paid", "failed")
		return nil, endSpan(span, err)
	}

	s.obsMetrics.RecordTransition(ctx, "mark_paid", string(paid.Status))
	extra := map[string]any{"previous_status": string(domain.StatusApproved)}
	if paid.PaymentID != nil {
		extra["payment_id"] = paid.PaymentID.String()
	}
	s.log.Info("statement paid",
		zap.String("statement_id", paid.ID.String()),
		zap.String("number", paid.Number),
		zap.String("status", string(paid.Status)),
	)
	s.emitAudit(ctx, "statement.paid", paid, actor, extra)
	return paid, nil
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, st *domain.Statement, method *masterdomain.PaymentMethod, direction paymentdomain.Direction) (snowflake.ID, error) {
	methodID := method.ID
	paymentID, err := s.payments.CreatePayment(ctx, tx, paymentdomain.CreatePaymentInput{
		CompanyID:       st.CompanyID,
		Direction:       direction,
		PartnerID:       st.ContractorID,
		Amount:          st.NetPayable,
		JournalID:       method.JournalID,
		PaymentMethodID: &methodID,
		Date:            dateOnly(s.clock.Now()),
		Reference:       "Payment for " + st.Number,
	})
	if err != nil {
		return 0, paymentError(err)
	}
	if err := s.payments.Post(ctx, tx, paymentID); err != nil {
		return 0, paymentError(err)
	}
	return paymentID, nil
}

func paymentError(err error) error {
	switch {
	case errors.Is(err, paymentdomain.ErrMissingAccount):
		return domain.Invalid(domain.ErrMissingPartnerAccount, "%s", err.Error())
	case errors.Is(err, paymentdomain.ErrInvalidJournal):
		return domain.Invalid(domain.ErrInvalidJournal, "%s", err.Error())
	default:
		return err
	}
}

// Delete removes a draft or confirmed statement. Confirmed quantities are
// released from the ledger first.
func (s *Service) Delete(ctx context.Context, id snowflake.ID, actor string) error {
	ctx, span := startSpan(ctx, "statement.Delete", attribute.String("statement_id", id.String()))
	defer span.End()

	var deleted *domain.Statement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if st.Status.Locked() {
			return domain.Invalid(domain.ErrStatementLocked, "statement %s is %s and cannot be deleted", st.Number, st.Status)
		}
		if st.Status == domain.StatusConfirmed {
			if err := s.accrue(ctx, tx, st, false); err != nil {
				return err
			}
		}
		if err := s.repo.Delete(ctx, tx, st.ID); err != nil {
			return err
		}
		deleted = st
		return nil
	})
	if err != nil {
		return endSpan(span, err)
	}

	s.log.Info("statement deleted",
		zap.String("statement_id", deleted.ID.String()),
		zap.String("number", deleted.Number),
		zap.String("status", string(deleted.Status)),
	)
	s.emitAudit(ctx, "statement.deleted", deleted, actorOrSystem(actor), nil)
	return nil
}

// accrue applies every line's current quantity to the ledger, positive on
// confirm and negative on reversal.
func (s *Service) accrue(ctx context.Context, tx *gorm.DB, st *domain.Statement, forward bool) error {
	for _, line := range st.Lines {
		if !line.CurrentQty.IsPositive() {
			continue
		}
		delta := line.CurrentQty
		if !forward {
			delta = delta.Neg()
		}
		total, err := s.quantities.Accrue(ctx, tx, keyFor(st, line.ProductID), delta)
		if err != nil {
			return err
		}
		if forward && total.GreaterThan(line.ContractQty) {
			return domain.Invalid(domain.ErrQuantityExceeded,
				"total quantity (%s) cannot exceed contract quantity (%s) for item: %s",
				total.String(), line.ContractQty.String(), line.Description)
		}
	}
	return nil
}

var failureReasons = []error{
	domain.ErrMissingJournal,
	domain.ErrInvalidJournal,
	domain.ErrMissingConfiguration,
	domain.ErrMissingDeductionAccount,
	domain.ErrMissingProductAccount,
	domain.ErrMissingPartnerAccount,
	domain.ErrMissingTaxAccount,
	domain.ErrNegativeNetPayable,
	domain.ErrUnbalancedEntry,
}

func failureReason(err error) string {
	for _, reason := range failureReasons {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}
	return "internal"
}
