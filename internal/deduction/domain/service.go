package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNoConfig          = errors.New("no_deduction_config")
	ErrDuplicateScope    = errors.New("duplicate_deduction_scope")
	ErrDuplicateDefault  = errors.New("duplicate_default_deduction_config")
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidScope      = errors.New("invalid_deduction_scope")
	ErrInvalidPercentage = errors.New("invalid_retention_percentage")
	ErrInvalidAccount    = errors.New("invalid_deduction_account")
	ErrInactiveConfig    = errors.New("inactive_deduction_config")
	ErrNotFound          = errors.New("not_found")
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cfg *Config) error
	Save(ctx context.Context, cfg *Config) error
	FindByID(ctx context.Context, id snowflake.ID) (*Config, error)
	FindByScopeKey(ctx context.Context, companyID snowflake.ID, scopeKey string) (*Config, error)
	FindDefault(ctx context.Context, companyID snowflake.ID) (*Config, error)
	FindCandidates(ctx context.Context, companyID snowflake.ID, scopeKeys []string) ([]*Config, error)
	List(ctx context.Context, companyID snowflake.ID) ([]*Config, error)
}

// Resolver picks the config for a statement scope.
type Resolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, companyID, projectID, workTypeID snowflake.ID) (*Config, error)
}

type Service interface {
	Resolver
	Create(ctx context.Context, req ConfigRequest) (*Config, error)
	Update(ctx context.Context, id snowflake.ID, req ConfigRequest) (*Config, error)
	SetDefault(ctx context.Context, id snowflake.ID) (*Config, error)
	Deactivate(ctx context.Context, id snowflake.ID) (*Config, error)
	Get(ctx context.Context, id snowflake.ID) (*Config, error)
	List(ctx context.Context, companyID snowflake.ID) ([]*Config, error)
}

type ConfigRequest struct {
	CompanyID           snowflake.ID    `json:"company_id"`
	Name                string          `json:"name"`
	ProjectID           *snowflake.ID   `json:"project_id"`
	WorkTypeID          *snowflake.ID   `json:"work_type_id"`
	IsDefault           bool            `json:"is_default"`
	RetentionPercentage decimal.Decimal `json:"retention_percentage"`
	AdvanceAccountID    *snowflake.ID   `json:"advance_account_id"`
	RetentionAccountID  *snowflake.ID   `json:"retention_account_id"`
	OtherAccountID      *snowflake.ID   `json:"other_account_id"`
}
