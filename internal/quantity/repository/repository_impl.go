package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sitebill/internal/quantity/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func keyScope(key domain.Key) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("project_id = ? AND work_type_id = ? AND contractor_id = ? AND product_id = ?",
			key.ProjectID, key.WorkTypeID, key.ContractorID, key.ProductID)
	}
}

func (r *repo) FindEntry(ctx context.Context, db *gorm.DB, key domain.Key, forUpdate bool) (*domain.LedgerEntry, error) {
	stmt := db.WithContext(ctx).Scopes(keyScope(key))
	if forUpdate {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var entry domain.LedgerEntry
	if err := stmt.First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// InsertEntry reports false when a concurrent writer already created the key.
func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) (bool, error) {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) UpdateEntryQty(ctx context.Context, db *gorm.DB, id snowflake.ID, qty decimal.Decimal, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{"accumulated_qty": qty, "updated_at": at}).Error
}

func (r *repo) DeleteEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.LedgerEntry{}).Error
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	stmt := db.WithContext(ctx).Model(&domain.LedgerEntry{})
	if projectID != 0 {
		stmt = stmt.Where("project_id = ?", projectID)
	}
	if err := stmt.Order("project_id, work_type_id, contractor_id, product_id").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// BilledQuantities returns current_qty of every line billed for key on a
// non-draft statement. Summing happens in the caller so the decimal math
// does not depend on the SQL dialect.
func (r *repo) BilledQuantities(ctx context.Context, db *gorm.DB, key domain.Key, filter domain.HistoryFilter) ([]decimal.Decimal, error) {
	stmt := db.WithContext(ctx).
		Table("statement_lines AS l").
		Select("l.current_qty").
		Joins("JOIN statements AS s ON s.id = l.statement_id").
		Where("s.project_id = ? AND s.work_type_id = ? AND s.contractor_id = ? AND l.product_id = ?",
			key.ProjectID, key.WorkTypeID, key.ContractorID, key.ProductID).
		Where("s.status <> ?", "draft")
	if filter.Before != nil {
		stmt = stmt.Where("s.statement_date < ?", filter.Before.UTC())
	}
	if filter.ExcludeStatementID != 0 {
		stmt = stmt.Where("s.id <> ?", filter.ExcludeStatementID)
	}

	var rows []struct {
		CurrentQty decimal.Decimal
	}
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]decimal.Decimal, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.CurrentQty)
	}
	return out, nil
}

func (r *repo) FindContract(ctx context.Context, db *gorm.DB, key domain.Key) (*domain.ContractQuantity, error) {
	var cq domain.ContractQuantity
	if err := db.WithContext(ctx).Scopes(keyScope(key)).First(&cq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cq, nil
}

func (r *repo) UpsertContract(ctx context.Context, db *gorm.DB, cq *domain.ContractQuantity) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "work_type_id"}, {Name: "contractor_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"contract_qty", "updated_at"}),
	}).Create(cq).Error
}
