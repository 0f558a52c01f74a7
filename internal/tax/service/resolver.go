package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// taxCodeFragment is the last-resort match on account codes.
const taxCodeFragment = "tax"

type ResolverParams struct {
	fx.In

	Log        *zap.Logger
	MasterData masterdomain.Repository
}

type resolver struct {
	log        *zap.Logger
	masterData masterdomain.Repository
}

func NewAccountResolver(p ResolverParams) taxdomain.AccountResolver {
	return &resolver{
		log:        p.Log.Named("tax.resolver"),
		masterData: p.MasterData,
	}
}

// ResolveAccount walks the tax repartition account, the company default tax
// account and finally any company account whose code contains "tax".
func (r *resolver) ResolveAccount(ctx context.Context, db *gorm.DB, tax taxdomain.Tax) (snowflake.ID, error) {
	repo := r.masterData.WithTx(db)

	if tax.AccountID != nil && *tax.AccountID != 0 {
		return *tax.AccountID, nil
	}

	company, err := repo.GetCompany(ctx, tax.CompanyID)
	if err != nil {
		return 0, err
	}
	if company != nil && company.DefaultTaxAccountID != nil && *company.DefaultTaxAccountID != 0 {
		return *company.DefaultTaxAccountID, nil
	}

	account, err := repo.FindAccountByCodeFragment(ctx, tax.CompanyID, taxCodeFragment)
	if err != nil {
		return 0, err
	}
	if account != nil {
		r.log.Debug("tax account resolved by code search",
			zap.String("tax_id", tax.ID.String()),
			zap.String("account_code", account.Code),
		)
		return account.ID, nil
	}

	return 0, fmt.Errorf("%w: %s", taxdomain.ErrNoTaxAccount, tax.Name)
}
