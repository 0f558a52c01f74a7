package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	masterrepo "github.com/smallbiznis/sitebill/internal/masterdata/repository"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
	"github.com/smallbiznis/sitebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveAccountPrecedence(t *testing.T) {
	models := append(masterdomain.Models(), &taxdomain.Tax{})
	conn := testutil.NewDB(t, models...)
	node := testutil.NewNode(t)
	md := masterrepo.NewRepository(conn)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	company := &masterdomain.Company{ID: node.Generate(), Code: "MAIN", Name: "Main", CreatedAt: now}
	require.NoError(t, md.Create(ctx, company))

	r := NewAccountResolver(ResolverParams{Log: zap.NewNop(), MasterData: md})
	tax := taxdomain.Tax{ID: node.Generate(), CompanyID: company.ID, Name: "VAT 14%", AmountType: taxdomain.AmountTypePercent, Amount: decimal.NewFromInt(14)}

	_, err := r.ResolveAccount(ctx, conn, tax)
	assert.ErrorIs(t, err, taxdomain.ErrNoTaxAccount)

	byCode := &masterdomain.Account{ID: node.Generate(), CompanyID: company.ID, Code: "2300-TAX", Name: "Tax payable", Type: masterdomain.AccountTypeLiability, CreatedAt: now}
	require.NoError(t, md.Create(ctx, byCode))
	got, err := r.ResolveAccount(ctx, conn, tax)
	require.NoError(t, err)
	assert.Equal(t, byCode.ID, got)

	companyDefault := &masterdomain.Account{ID: node.Generate(), CompanyID: company.ID, Code: "2310", Name: "VAT output", Type: masterdomain.AccountTypeLiability, CreatedAt: now}
	require.NoError(t, md.Create(ctx, companyDefault))
	require.NoError(t, md.UpdateCompanyDefaults(ctx, company.ID, &companyDefault.ID, nil))
	got, err = r.ResolveAccount(ctx, conn, tax)
	require.NoError(t, err)
	assert.Equal(t, companyDefault.ID, got)

	repartition := snowflake.ID(777)
	tax.AccountID = &repartition
	got, err = r.ResolveAccount(ctx, conn, tax)
	require.NoError(t, err)
	assert.Equal(t, repartition, got)
}
