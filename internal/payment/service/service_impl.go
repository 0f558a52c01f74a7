package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebill/internal/clock"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	obsmetrics "github.com/smallbiznis/sitebill/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/sitebill/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       paymentdomain.Repository
	MasterData masterdomain.Repository
	LedgerSvc  ledgerdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	masterData masterdomain.Repository
	ledgerSvc  ledgerdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		masterData: p.MasterData,
		ledgerSvc:  p.LedgerSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreatePayment(ctx context.Context, tx *gorm.DB, input paymentdomain.CreatePaymentInput) (snowflake.ID, error) {
	if input.CompanyID == 0 {
		return 0, paymentdomain.ErrInvalidCompany
	}
	switch input.Direction {
	case paymentdomain.DirectionInbound, paymentdomain.DirectionOutbound:
	default:
		return 0, paymentdomain.ErrInvalidDirection
	}
	if input.PartnerID == 0 {
		return 0, paymentdomain.ErrInvalidPartner
	}
	if input.JournalID == 0 {
		return 0, paymentdomain.ErrInvalidJournal
	}
	if input.Date.IsZero() {
		return 0, paymentdomain.ErrInvalidDate
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return 0, paymentdomain.ErrInvalidAmount
	}

	payment := paymentdomain.Payment{
		ID:              s.genID.Generate(),
		CompanyID:       input.CompanyID,
		Direction:       input.Direction,
		PartnerID:       input.PartnerID,
		Amount:          amount,
		JournalID:       input.JournalID,
		PaymentMethodID: input.PaymentMethodID,
		Date:            input.Date.UTC(),
		Reference:       strings.TrimSpace(input.Reference),
		State:           paymentdomain.StateDraft,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &payment); err != nil {
		return 0, err
	}
	return payment.ID, nil
}

// Post books the payment against the journal account and the partner's
// payable (outbound) or receivable (inbound) account.
func (s *Service) Post(ctx context.Context, tx *gorm.DB, paymentID snowflake.ID) error {
	payment, err := s.repo.FindByIDForUpdate(ctx, tx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return paymentdomain.ErrNotFound
	}
	if payment.State == paymentdomain.StatePosted {
		return paymentdomain.ErrAlreadyPosted
	}

	md := s.masterData.WithTx(tx)
	journal, err := md.GetJournal(ctx, payment.JournalID)
	if err != nil {
		return err
	}
	if journal == nil {
		return paymentdomain.ErrInvalidJournal
	}
	if journal.DefaultAccountID == nil {
		return fmt.Errorf("%w: journal %s has no default account", paymentdomain.ErrMissingAccount, journal.Code)
	}
	partner, err := md.GetContractor(ctx, payment.PartnerID)
	if err != nil {
		return err
	}
	if partner == nil {
		return paymentdomain.ErrInvalidPartner
	}

	partnerID := partner.ID
	label := fmt.Sprintf("Payment - %s", partner.Name)
	var lines []ledgerdomain.LineInput
	switch payment.Direction {
	case paymentdomain.DirectionOutbound:
		if partner.PayableAccountID == nil {
			return fmt.Errorf("%w: contractor %s has no payable account", paymentdomain.ErrMissingAccount, partner.Name)
		}
		lines = []ledgerdomain.LineInput{
			{AccountID: *partner.PayableAccountID, PartnerID: &partnerID, Label: label, Debit: payment.Amount},
			{AccountID: *journal.DefaultAccountID, Label: label, Credit: payment.Amount},
		}
	default:
		if partner.ReceivableAccountID == nil {
			return fmt.Errorf("%w: contractor %s has no receivable account", paymentdomain.ErrMissingAccount, partner.Name)
		}
		lines = []ledgerdomain.LineInput{
			{AccountID: *journal.DefaultAccountID, Label: label, Debit: payment.Amount},
			{AccountID: *partner.ReceivableAccountID, PartnerID: &partnerID, Label: label, Credit: payment.Amount},
		}
	}

	entryID, err := s.ledgerSvc.CreateEntry(ctx, tx, ledgerdomain.CreateEntryInput{
		CompanyID:  payment.CompanyID,
		JournalID:  payment.JournalID,
		Date:       payment.Date,
		Reference:  payment.Reference,
		SourceType: ledgerdomain.SourceTypePayment,
		SourceID:   payment.ID,
		Lines:      lines,
	})
	if err != nil {
		return err
	}
	if err := s.ledgerSvc.Post(ctx, tx, entryID); err != nil {
		return err
	}

	updated, err := s.repo.MarkPosted(ctx, tx, payment.ID, entryID, s.clock.Now())
	if err != nil {
		return err
	}
	if !updated {
		return paymentdomain.ErrAlreadyPosted
	}

	s.log.Info("payment posted",
		zap.String("payment_id", payment.ID.String()),
		zap.String("direction", string(payment.Direction)),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("ledger_entry_id", entryID.String()),
	)
	s.obsMetrics.RecordPayment(ctx, string(payment.Direction))
	return nil
}

func (s *Service) Get(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}
