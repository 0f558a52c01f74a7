package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
	"gorm.io/gorm"
)

type repository struct{}

func NewRepository() taxdomain.Repository {
	return &repository{}
}

func (r *repository) Create(ctx context.Context, db *gorm.DB, tax *taxdomain.Tax) error {
	return db.WithContext(ctx).Create(tax).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*taxdomain.Tax, error) {
	var tax taxdomain.Tax
	err := db.WithContext(ctx).Where("id = ?", id).First(&tax).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tax, nil
}

func (r *repository) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]taxdomain.Tax, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var taxes []taxdomain.Tax
	if err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&taxes).Error; err != nil {
		return nil, err
	}
	return taxes, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, activeOnly bool) ([]taxdomain.Tax, error) {
	var taxes []taxdomain.Tax
	stmt := db.WithContext(ctx).Model(&taxdomain.Tax{}).Where("company_id = ?", companyID)
	if activeOnly {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("name asc").Find(&taxes).Error; err != nil {
		return nil, err
	}
	return taxes, nil
}

func (r *repository) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error {
	return db.WithContext(ctx).Model(&taxdomain.Tax{}).
		Where("id = ?", id).
		Update("active", active).Error
}
