package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/sitebill/internal/clock"
	"github.com/smallbiznis/sitebill/internal/masterdata/domain"
	"github.com/smallbiznis/sitebill/internal/masterdata/repository"
	"github.com/smallbiznis/sitebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	conn := testutil.NewDB(t, domain.Models()...)
	return NewService(Params{
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Repo:  repository.NewRepository(conn),
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func TestCreateWorkTypeRejectsDuplicateCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateWorkType(ctx, domain.CreateWorkTypeRequest{Code: "WT1", Name: "Concrete"})
	require.NoError(t, err)

	_, err = svc.CreateWorkType(ctx, domain.CreateWorkTypeRequest{Code: "WT1", Name: "Other"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestCreateProductRequiresKnownWorkType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Code: "C30", Name: "Concrete C30", Unit: "m3", WorkTypeID: 42})
	assert.ErrorIs(t, err, domain.ErrInvalidWorkType)

	wt, err := svc.CreateWorkType(ctx, domain.CreateWorkTypeRequest{Code: "WT1", Name: "Concrete"})
	require.NoError(t, err)

	product, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Code: "C30", Name: "Concrete C30", Unit: "m3", WorkTypeID: wt.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductAccountIn, product.AccountType)

	products, err := svc.ListProducts(ctx, &wt.ID)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestCreatePaymentMethodNeedsBankOrCashJournal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	company, err := svc.CreateCompany(ctx, domain.CreateCompanyRequest{Code: "MAIN", Name: "Main"})
	require.NoError(t, err)
	general, err := svc.CreateJournal(ctx, domain.CreateJournalRequest{CompanyID: company.ID, Code: "MISC", Name: "Miscellaneous", Type: domain.JournalTypeGeneral})
	require.NoError(t, err)
	bank, err := svc.CreateJournal(ctx, domain.CreateJournalRequest{CompanyID: company.ID, Code: "BNK", Name: "Bank", Type: domain.JournalTypeBank})
	require.NoError(t, err)

	_, err = svc.CreatePaymentMethod(ctx, domain.CreatePaymentMethodRequest{Code: "WIRE", Name: "Wire", JournalID: general.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidJournal)

	method, err := svc.CreatePaymentMethod(ctx, domain.CreatePaymentMethodRequest{Code: "WIRE", Name: "Wire", JournalID: bank.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentTypeBoth, method.PaymentType)
	assert.True(t, method.PaymentType.Allows("outbound"))
}

func TestSetCompanyDefaultsValidatesOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateCompany(ctx, domain.CreateCompanyRequest{Code: "A", Name: "A"})
	require.NoError(t, err)
	second, err := svc.CreateCompany(ctx, domain.CreateCompanyRequest{Code: "B", Name: "B"})
	require.NoError(t, err)
	foreign, err := svc.CreateAccount(ctx, domain.CreateAccountRequest{CompanyID: second.ID, Code: "2200", Name: "VAT", Type: domain.AccountTypeLiability})
	require.NoError(t, err)

	_, err = svc.SetCompanyDefaults(ctx, domain.SetCompanyDefaultsRequest{CompanyID: first.ID, DefaultTaxAccountID: &foreign.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidAccount)

	own, err := svc.CreateAccount(ctx, domain.CreateAccountRequest{CompanyID: first.ID, Code: "2200", Name: "VAT", Type: domain.AccountTypeLiability})
	require.NoError(t, err)
	updated, err := svc.SetCompanyDefaults(ctx, domain.SetCompanyDefaultsRequest{CompanyID: first.ID, DefaultTaxAccountID: &own.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.DefaultTaxAccountID)
	assert.Equal(t, own.ID, *updated.DefaultTaxAccountID)
}
