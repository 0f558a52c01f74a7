package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountResolver finds the account a tax amount posts to.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, db *gorm.DB, tax Tax) (snowflake.ID, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Tax, error)
	List(ctx context.Context, companyID snowflake.ID) ([]Tax, error)
	Disable(ctx context.Context, id snowflake.ID) (*Tax, error)
}

type CreateRequest struct {
	CompanyID  snowflake.ID    `json:"company_id"`
	Name       string          `json:"name"`
	AmountType AmountType      `json:"amount_type"`
	Amount     decimal.Decimal `json:"amount"`
	AccountID  *snowflake.ID   `json:"account_id"`
}
