package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebill/internal/clock"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/sitebill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

// CreateEntry inserts a draft entry and its lines. A second call for the same
// source returns the existing entry id without writing.
func (s *Service) CreateEntry(ctx context.Context, tx *gorm.DB, input ledgerdomain.CreateEntryInput) (snowflake.ID, error) {
	if input.CompanyID == 0 {
		return 0, ledgerdomain.ErrInvalidCompany
	}
	if input.JournalID == 0 {
		return 0, ledgerdomain.ErrInvalidJournal
	}
	sourceType := ledgerdomain.SourceType(strings.TrimSpace(string(input.SourceType)))
	if sourceType == "" {
		return 0, ledgerdomain.ErrInvalidSourceType
	}
	if input.SourceID == 0 {
		return 0, ledgerdomain.ErrInvalidSourceID
	}
	if input.Date.IsZero() {
		return 0, ledgerdomain.ErrInvalidDate
	}

	normalized := make([]ledgerdomain.LineInput, 0, len(input.Lines))
	for _, line := range input.Lines {
		line.Debit = line.Debit.Round(2)
		line.Credit = line.Credit.Round(2)
		line.Label = strings.TrimSpace(line.Label)
		normalized = append(normalized, line)
	}
	if err := ledgerdomain.ValidateBalanced(normalized); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	entry := ledgerdomain.LedgerEntry{
		ID:         s.genID.Generate(),
		CompanyID:  input.CompanyID,
		JournalID:  input.JournalID,
		Date:       input.Date.UTC(),
		Reference:  strings.TrimSpace(input.Reference),
		SourceType: sourceType,
		SourceID:   input.SourceID,
		State:      ledgerdomain.EntryStateDraft,
		CreatedAt:  now,
	}

	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("Lines").
		Create(&entry)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		var existing ledgerdomain.LedgerEntry
		if err := tx.WithContext(ctx).
			Where("source_type = ? AND source_id = ?", sourceType, input.SourceID).
			First(&existing).Error; err != nil {
			return 0, err
		}
		s.log.Info("ledger entry already exists for source",
			zap.String("source_type", string(sourceType)),
			zap.String("source_id", input.SourceID.String()),
			zap.String("ledger_entry_id", existing.ID.String()),
		)
		return existing.ID, nil
	}

	lines := make([]ledgerdomain.LedgerEntryLine, 0, len(normalized))
	for _, line := range normalized {
		lines = append(lines, ledgerdomain.LedgerEntryLine{
			ID:            s.genID.Generate(),
			LedgerEntryID: entry.ID,
			AccountID:     line.AccountID,
			PartnerID:     line.PartnerID,
			Label:         line.Label,
			Debit:         line.Debit,
			Credit:        line.Credit,
			CreatedAt:     now,
		})
	}
	if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
		return 0, err
	}

	s.log.Info("ledger entry created",
		zap.String("ledger_entry_id", entry.ID.String()),
		zap.String("source_type", string(sourceType)),
		zap.String("source_id", input.SourceID.String()),
		zap.Int("lines", len(lines)),
	)
	s.obsMetrics.RecordLedgerEntry(ctx, string(sourceType))
	return entry.ID, nil
}

// Post freezes a draft entry. Posted entries cannot be posted again.
func (s *Service) Post(ctx context.Context, tx *gorm.DB, entryID snowflake.ID) error {
	var entry ledgerdomain.LedgerEntry
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", entryID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledgerdomain.ErrNotFound
		}
		return err
	}
	if entry.State == ledgerdomain.EntryStatePosted {
		return ledgerdomain.ErrEntryPosted
	}

	var lines []ledgerdomain.LedgerEntryLine
	if err := tx.WithContext(ctx).Where("ledger_entry_id = ?", entryID).Find(&lines).Error; err != nil {
		return err
	}
	inputs := make([]ledgerdomain.LineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, ledgerdomain.LineInput{AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit})
	}
	if err := ledgerdomain.ValidateBalanced(inputs); err != nil {
		return err
	}

	now := s.clock.Now()
	result := tx.WithContext(ctx).Model(&ledgerdomain.LedgerEntry{}).
		Where("id = ? AND state = ?", entryID, ledgerdomain.EntryStateDraft).
		Updates(map[string]any{"state": ledgerdomain.EntryStatePosted, "posted_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledgerdomain.ErrEntryPosted
	}

	s.log.Info("ledger entry posted", zap.String("ledger_entry_id", entryID.String()))
	return nil
}

func (s *Service) GetEntry(ctx context.Context, entryID snowflake.ID) (*ledgerdomain.LedgerEntry, error) {
	var entry ledgerdomain.LedgerEntry
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", entryID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgerdomain.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}
