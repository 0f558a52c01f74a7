package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebill/internal/deduction/domain"
	"github.com/smallbiznis/sitebill/pkg/db/option"
	"github.com/smallbiznis/sitebill/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db      *gorm.DB
	configs repository.Repository[domain.Config]
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{
		db:      db,
		configs: repository.ProvideStore[domain.Config](db),
	}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	if tx == nil {
		return r
	}
	return &repo{db: tx, configs: r.configs.WithTrx(tx)}
}

func (r *repo) Create(ctx context.Context, cfg *domain.Config) error {
	return r.configs.Create(ctx, cfg)
}

// Save writes every column, including nil slot columns.
func (r *repo) Save(ctx context.Context, cfg *domain.Config) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Config, error) {
	return r.configs.FindByID(ctx, id)
}

func (r *repo) FindByScopeKey(ctx context.Context, companyID snowflake.ID, scopeKey string) (*domain.Config, error) {
	return r.configs.FindOne(ctx, nil, option.WithWhere("company_id = ? AND scope_key = ?", companyID, scopeKey))
}

func (r *repo) FindDefault(ctx context.Context, companyID snowflake.ID) (*domain.Config, error) {
	return r.configs.FindOne(ctx, nil, option.WithWhere("company_id = ? AND default_slot IS NOT NULL", companyID))
}

func (r *repo) FindCandidates(ctx context.Context, companyID snowflake.ID, scopeKeys []string) ([]*domain.Config, error) {
	return r.configs.Find(ctx, nil,
		option.WithWhere("company_id = ? AND active = ?", companyID, true),
		option.WithWhere("(scope_key IN ? OR default_slot IS NOT NULL)", scopeKeys),
	)
}

func (r *repo) List(ctx context.Context, companyID snowflake.ID) ([]*domain.Config, error) {
	return r.configs.Find(ctx, nil,
		option.WithWhere("company_id = ?", companyID),
		option.WithSortBy(option.SortBy{Column: "name"}),
	)
}
