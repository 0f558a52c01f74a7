package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebill/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) find(db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var item domain.Payment
	if err := db.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// MarkPosted flips a draft payment to posted and reports whether it did.
func (r *repo) MarkPosted(ctx context.Context, db *gorm.DB, id, entryID snowflake.ID, postedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id = ? AND state = ?", id, domain.StateDraft).
		Updates(map[string]any{
			"state":           domain.StatePosted,
			"ledger_entry_id": entryID,
			"posted_at":       postedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
