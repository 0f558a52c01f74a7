package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, tax *Tax) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tax, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Tax, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, activeOnly bool) ([]Tax, error)
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error
}
