package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sitebill/internal/clock"
	obsmetrics "github.com/smallbiznis/sitebill/internal/observability/metrics"
	"github.com/smallbiznis/sitebill/internal/quantity/domain"
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
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("quantity.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// Accrue adds delta to the running total for key and returns the new total.
// The row is locked for the rest of tx so concurrent accruals on the same key
// queue behind each other.
func (s *Service) Accrue(ctx context.Context, tx *gorm.DB, key domain.Key, delta decimal.Decimal) (decimal.Decimal, error) {
	if !key.Valid() {
		return decimal.Zero, domain.ErrInvalidKey
	}
	if delta.IsZero() {
		return s.Lookup(ctx, tx, key)
	}
	db := s.conn(tx)

	entry, err := s.repo.FindEntry(ctx, db, key, true)
	if err != nil {
		return decimal.Zero, err
	}
	if entry == nil {
		if !delta.IsPositive() {
			s.log.Debug("skipping reversal without ledger entry",
				zap.String("product_id", key.ProductID.String()),
				zap.String("delta", delta.String()),
			)
			return decimal.Zero, nil
		}
		now := s.clock.Now()
		inserted, err := s.repo.InsertEntry(ctx, db, &domain.LedgerEntry{
			ID:             s.genID.Generate(),
			ProjectID:      key.ProjectID,
			WorkTypeID:     key.WorkTypeID,
			ContractorID:   key.ContractorID,
			ProductID:      key.ProductID,
			AccumulatedQty: delta,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return decimal.Zero, err
		}
		if inserted {
			s.obsMetrics.RecordAccrual(ctx, delta.InexactFloat64())
			return delta, nil
		}
		// Another transaction created the row first; add on top of it.
		entry, err = s.repo.FindEntry(ctx, db, key, true)
		if err != nil {
			return decimal.Zero, err
		}
		if entry == nil {
			return decimal.Zero, domain.ErrInvalidKey
		}
	}

	next := entry.AccumulatedQty.Add(delta)
	if next.IsZero() {
		if err := s.repo.DeleteEntry(ctx, db, entry.ID); err != nil {
			return decimal.Zero, err
		}
	} else {
		if next.IsNegative() {
			s.log.Warn("quantity ledger went negative",
				zap.String("ledger_entry_id", entry.ID.String()),
				zap.String("accumulated_qty", next.String()),
			)
		}
		if err := s.repo.UpdateEntryQty(ctx, db, entry.ID, next, s.clock.Now()); err != nil {
			return decimal.Zero, err
		}
	}
	s.obsMetrics.RecordAccrual(ctx, delta.InexactFloat64())
	return next, nil
}

func (s *Service) Lookup(ctx context.Context, tx *gorm.DB, key domain.Key) (decimal.Decimal, error) {
	entry, err := s.repo.FindEntry(ctx, s.conn(tx), key, false)
	if err != nil {
		return decimal.Zero, err
	}
	if entry == nil {
		return decimal.Zero, nil
	}
	return entry.AccumulatedQty, nil
}

// PreviousQuantity prefers the running total. Keys that were never accrued
// fall back to summing earlier billed lines.
func (s *Service) PreviousQuantity(ctx context.Context, tx *gorm.DB, key domain.Key, statementDate time.Time, excludeStatementID snowflake.ID) (decimal.Decimal, error) {
	db := s.conn(tx)
	entry, err := s.repo.FindEntry(ctx, db, key, false)
	if err != nil {
		return decimal.Zero, err
	}
	if entry != nil {
		return entry.AccumulatedQty, nil
	}
	return s.sumBilled(ctx, db, key, domain.HistoryFilter{Before: &statementDate, ExcludeStatementID: excludeStatementID})
}

func (s *Service) HistoricalQuantity(ctx context.Context, tx *gorm.DB, key domain.Key, before time.Time) (decimal.Decimal, error) {
	return s.sumBilled(ctx, s.conn(tx), key, domain.HistoryFilter{Before: &before})
}

func (s *Service) sumBilled(ctx context.Context, db *gorm.DB, key domain.Key, filter domain.HistoryFilter) (decimal.Decimal, error) {
	quantities, err := s.repo.BilledQuantities(ctx, db, key, filter)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, qty := range quantities {
		total = total.Add(qty)
	}
	return total, nil
}

// Reconcile compares the running total with every non-draft billed line.
func (s *Service) Reconcile(ctx context.Context, key domain.Key) (domain.Reconciliation, error) {
	if !key.Valid() {
		return domain.Reconciliation{}, domain.ErrInvalidKey
	}
	return s.reconcile(ctx, s.db, key)
}

func (s *Service) reconcile(ctx context.Context, db *gorm.DB, key domain.Key) (domain.Reconciliation, error) {
	entry, err := s.repo.FindEntry(ctx, db, key, false)
	if err != nil {
		return domain.Reconciliation{}, err
	}
	historical, err := s.sumBilled(ctx, db, key, domain.HistoryFilter{})
	if err != nil {
		return domain.Reconciliation{}, err
	}
	rec := domain.Reconciliation{Key: key, Ledger: decimal.Zero, Historical: historical}
	if entry != nil {
		rec.Tracked = true
		rec.Ledger = entry.AccumulatedQty
	}
	rec.Drift = rec.Ledger.Sub(rec.Historical)
	if !rec.InSync() {
		s.log.Warn("quantity ledger drift",
			zap.String("project_id", key.ProjectID.String()),
			zap.String("product_id", key.ProductID.String()),
			zap.String("ledger", rec.Ledger.String()),
			zap.String("historical", rec.Historical.String()),
		)
	}
	return rec, nil
}

// Backfill seeds the running total from billed lines for keys that have
// history but no ledger row. Tracked keys are left alone.
func (s *Service) Backfill(ctx context.Context, key domain.Key) (domain.Reconciliation, error) {
	if !key.Valid() {
		return domain.Reconciliation{}, domain.ErrInvalidKey
	}
	var rec domain.Reconciliation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.reconcile(ctx, tx, key)
		if err != nil {
			return err
		}
		rec = current
		if current.Tracked || !current.Historical.IsPositive() {
			return nil
		}
		if _, err := s.Accrue(ctx, tx, key, current.Historical); err != nil {
			return err
		}
		rec, err = s.reconcile(ctx, tx, key)
		return err
	})
	if err != nil {
		return domain.Reconciliation{}, err
	}
	return rec, nil
}

func (s *Service) ListEntries(ctx context.Context, projectID snowflake.ID) ([]domain.LedgerEntry, error) {
	return s.repo.ListEntries(ctx, s.db, projectID)
}

func (s *Service) ContractQuantity(ctx context.Context, tx *gorm.DB, key domain.Key) (decimal.Decimal, error) {
	cq, err := s.repo.FindContract(ctx, s.conn(tx), key)
	if err != nil {
		return decimal.Zero, err
	}
	if cq == nil {
		return decimal.Zero, nil
	}
	return cq.ContractQty, nil
}

func (s *Service) SetContractQuantity(ctx context.Context, key domain.Key, qty decimal.Decimal) (*domain.ContractQuantity, error) {
	if !key.Valid() {
		return nil, domain.ErrInvalidKey
	}
	if qty.IsNegative() {
		return nil, domain.ErrInvalidQuantity
	}
	now := s.clock.Now()
	cq := &domain.ContractQuantity{
		ID:           s.genID.Generate(),
		ProjectID:    key.ProjectID,
		WorkTypeID:   key.WorkTypeID,
		ContractorID: key.ContractorID,
		ProductID:    key.ProductID,
		ContractQty:  qty.Round(4),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.UpsertContract(ctx, s.db, cq); err != nil {
		return nil, err
	}
	return s.repo.FindContract(ctx, s.db, key)
}
