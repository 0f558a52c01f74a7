// Package scheduler runs periodic maintenance jobs against the quantity
// ledger.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/sitebill/internal/audit/domain"
	"github.com/smallbiznis/sitebill/internal/clock"
	obsmetrics "github.com/smallbiznis/sitebill/internal/observability/metrics"
	quantitydomain "github.com/smallbiznis/sitebill/internal/quantity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobQuantityReconcile = "quantity_reconcile"

	actorScheduler = "scheduler"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Quantity quantitydomain.Service
	AuditSvc auditdomain.Service
	GenID    *snowflake.Node
	Clock    clock.Clock
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Config   Config              `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	quantity quantitydomain.Service
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Quantity == nil || p.AuditSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		quantity: p.Quantity,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}, nil
}

type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	processed int
	drifted   int
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context, run *jobRun) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	run := &jobRun{job: name, runID: s.genID.Generate().String(), startedAt: s.clock.Now()}
	log := s.log.With(zap.String("job", name), zap.String("run_id", run.runID))
	log.Info("job started", zap.Int("batch_size", s.cfg.BatchSize))

	err := fn(ctx, run)
	fields := []zap.Field{
		zap.Int("processed", run.processed),
		zap.Int("drifted", run.drifted),
		zap.Duration("duration", s.clock.Now().Sub(run.startedAt)),
	}
	if err == nil {
		s.metrics.RecordJobRun(ctx, name, "success")
		log.Info("job finished", fields...)
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordJobRun(ctx, name, "timeout")
		log.Warn("job timed out", append(fields, zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))...)
		return nil
	}

	s.metrics.RecordJobRun(ctx, name, "error")
	log.Error("job failed", append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every job a single time.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, JobQuantityReconcile, s.QuantityReconcileJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// QuantityReconcileJob walks every tracked ledger key in id order and
// compares its running total with the billed line history. Drifted keys are
// audited; the ledger itself is never rewritten here.
func (s *Scheduler) QuantityReconcileJob(ctx context.Context, run *jobRun) error {
	var cursor snowflake.ID
	for {
		var entries []quantitydomain.LedgerEntry
		err := s.db.WithContext(ctx).
			Where("id > ?", cursor).
			Order("id ASC").
			Limit(s.cfg.BatchSize).
			Find(&entries).Error
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := s.quantity.Reconcile(ctx, entry.Key())
			if err != nil {
				return fmt.Errorf("reconcile entry %s: %w", entry.ID, err)
			}
			run.processed++
			if rec.InSync() {
				continue
			}
			run.drifted++
			s.metrics.RecordQuantityDrift(ctx, 1)
			s.auditDrift(ctx, entry, rec)
		}

		cursor = entries[len(entries)-1].ID
		if len(entries) < s.cfg.BatchSize {
			return nil
		}
	}
}

func (s *Scheduler) auditDrift(ctx context.Context, entry quantitydomain.LedgerEntry, rec quantitydomain.Reconciliation) {
	err := s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		Actor:      actorScheduler,
		ActorType:  auditdomain.ActorTypeSystem,
		Action:     "quantity.drift_detected",
		TargetType: "quantity_ledger_entry",
		TargetID:   entry.ID.String(),
		Metadata: map[string]any{
			"project_id":    entry.ProjectID.String(),
			"work_type_id":  entry.WorkTypeID.String(),
			"contractor_id": entry.ContractorID.String(),
			"product_id":    entry.ProductID.String(),
			"ledger":        rec.Ledger.String(),
			"historical":    rec.Historical.String(),
			"drift":         rec.Drift.String(),
		},
	})
	if err != nil {
		s.log.Warn("failed to audit quantity drift", zap.String("entry_id", entry.ID.String()), zap.Error(err))
	}
}
