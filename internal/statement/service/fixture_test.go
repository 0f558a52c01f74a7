package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/sitebill/internal/audit/domain"
	auditrepo "github.com/smallbiznis/sitebill/internal/audit/repository"
	auditservice "github.com/smallbiznis/sitebill/internal/audit/service"
	"github.com/smallbiznis/sitebill/internal/clock"
	deductiondomain "github.com/smallbiznis/sitebill/internal/deduction/domain"
	deductionrepo "github.com/smallbiznis/sitebill/internal/deduction/repository"
	deductionservice "github.com/smallbiznis/sitebill/internal/deduction/service"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/sitebill/internal/ledger/service"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	masterrepo "github.com/smallbiznis/sitebill/internal/masterdata/repository"
	paymentdomain "github.com/smallbiznis/sitebill/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/sitebill/internal/payment/repository"
	paymentservice "github.com/smallbiznis/sitebill/internal/payment/service"
	quantitydomain "github.com/smallbiznis/sitebill/internal/quantity/domain"
	quantityrepo "github.com/smallbiznis/sitebill/internal/quantity/repository"
	quantityservice "github.com/smallbiznis/sitebill/internal/quantity/service"
	"github.com/smallbiznis/sitebill/internal/statement/domain"
	"github.com/smallbiznis/sitebill/internal/statement/repository"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
	taxrepo "github.com/smallbiznis/sitebill/internal/tax/repository"
	taxservice "github.com/smallbiznis/sitebill/internal/tax/service"
	"github.com/smallbiznis/sitebill/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	march = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	april = time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	t   *testing.T
	db  *gorm.DB
	svc domain.Service

	quantities quantitydomain.Service
	deductions deductiondomain.Service
	ledger     ledgerdomain.Service
	payments   paymentdomain.Service
	audit      auditdomain.Service

	company       *masterdomain.Company
	project       *masterdomain.Project
	workType      *masterdomain.WorkType
	contractor    *masterdomain.Contractor
	concrete      *masterdomain.Product
	rebar         *masterdomain.Product
	foreign       *masterdomain.Product
	vat           *taxdomain.Tax
	method        *masterdomain.PaymentMethod
	generalJrnl   *masterdomain.Journal
	defaultConfig *deductiondomain.Config

	workAccount      snowflake.ID
	taxAccount       snowflake.ID
	retentionAccount snowflake.ID
	payableAccount   snowflake.ID
	receivable       snowflake.ID
	bankAccount      snowflake.ID
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	models := append([]any{}, masterdomain.Models()...)
	models = append(models, &taxdomain.Tax{}, &deductiondomain.Config{}, &paymentdomain.Payment{}, &auditdomain.AuditLog{})
	models = append(models, quantitydomain.Models()...)
	models = append(models, ledgerdomain.Models()...)
	models = append(models, domain.Models()...)
	conn := testutil.NewDB(t, models...)

	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	ctx := context.Background()
	md := masterrepo.NewRepository(conn)

	f := &fixture{t: t, db: conn}
	now := clk.Now()

	f.company = &masterdomain.Company{ID: node.Generate(), Code: "MAIN", Name: "Main", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, md.Create(ctx, f.company))

	account := func(code string, typ masterdomain.AccountType) snowflake.ID {
		a := &masterdomain.Account{ID: node.Generate(), CompanyID: f.company.ID, Code: code, Name: code, Type: typ, CreatedAt: now}
		require.NoError(t, md.Create(ctx, a))
		return a.ID
	}
	f.workAccount = account("5100", masterdomain.AccountTypeExpense)
	f.taxAccount = account("1500", masterdomain.AccountTypeAsset)
	f.retentionAccount = account("2200", masterdomain.AccountTypeLiability)
	f.payableAccount = account("2010", masterdomain.AccountTypeLiability)
	f.receivable = account("1210", masterdomain.AccountTypeAsset)
	f.bankAccount = account("1010", masterdomain.AccountTypeAsset)

	f.generalJrnl = &masterdomain.Journal{ID: node.Generate(), CompanyID: f.company.ID, Code: "GEN", Name: "General", Type: masterdomain.JournalTypeGeneral, Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, f.generalJrnl))
	bank := &masterdomain.Journal{ID: node.Generate(), CompanyID: f.company.ID, Code: "BNK", Name: "Bank", Type: masterdomain.JournalTypeBank, DefaultAccountID: &f.bankAccount, Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, bank))

	f.project = &masterdomain.Project{ID: node.Generate(), CompanyID: f.company.ID, Code: "P1", Name: "Tower", Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, f.project))
	f.workType = &masterdomain.WorkType{ID: node.Generate(), Code: "WT1", Name: "Structure", Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, f.workType))
	other := &masterdomain.WorkType{ID: node.Generate(), Code: "WT2", Name: "Finishing", Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, other))

	f.contractor = &masterdomain.Contractor{ID: node.Generate(), CompanyID: f.company.ID, Name: "Acme Builders", IsCompany: true, PayableAccountID: &f.payableAccount, ReceivableAccountID: &f.receivable, Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, f.contractor))

	product := func(code, name string, workType snowflake.ID) *masterdomain.Product {
		p := &masterdomain.Product{ID: node.Generate(), Code: code, Name: name, Unit: "m3", WorkTypeID: workType, AccountType: masterdomain.ProductAccountIn, InAccountID: &f.workAccount, Active: true, CreatedAt: now}
		require.NoError(t, md.Create(ctx, p))
		return p
	}
	f.concrete = product("CON", "Concrete", f.workType.ID)
	f.rebar = product("REB", "Rebar", f.workType.ID)
	f.foreign = product("PNT", "Paint", other.ID)

	f.method = &masterdomain.PaymentMethod{ID: node.Generate(), Code: "TRF", Name: "Transfer", JournalID: bank.ID, PaymentType: masterdomain.PaymentTypeBoth, Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, f.method))

	taxes := taxrepo.NewRepository()
	f.vat = &taxdomain.Tax{ID: node.Generate(), CompanyID: f.company.ID, Name: "VAT 14%", AmountType: taxdomain.AmountTypePercent, Amount: dec("14"), AccountID: &f.taxAccount, Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, taxes.Create(ctx, conn, f.vat))

	f.quantities = quantityservice.NewService(quantityservice.Params{DB: conn, Log: log, GenID: node, Clock: clk, Repo: quantityrepo.Provide()})
	f.deductions = deductionservice.NewService(deductionservice.Params{DB: conn, Log: log, GenID: node, Clock: clk, Repo: deductionrepo.NewRepository(conn), MasterData: md})
	f.ledger = ledgerservice.NewService(ledgerservice.Params{DB: conn, Log: log, GenID: node, Clock: clk})
	f.payments = paymentservice.NewService(paymentservice.Params{DB: conn, Log: log, GenID: node, Clock: clk, Repo: paymentrepo.Provide(), MasterData: md, LedgerSvc: f.ledger})
	f.audit = auditservice.NewService(auditservice.Params{DB: conn, Log: log, GenID: node, Repo: auditrepo.Provide(), Clock: clk})

	cfg, err := f.deductions.Create(ctx, deductiondomain.ConfigRequest{
		CompanyID:           f.company.ID,
		Name:                "Company default",
		IsDefault:           true,
		RetentionPercentage: dec("5"),
		RetentionAccountID:  &f.retentionAccount,
	})
	require.NoError(t, err)
	f.defaultConfig = cfg

	f.setCap(f.concrete, "100")
	f.setCap(f.rebar, "1000")

	f.svc = NewService(Params{
		DB:          conn,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Repo:        repository.Provide(),
		MasterData:  md,
		Taxes:       taxes,
		TaxAccounts: taxservice.NewAccountResolver(taxservice.ResolverParams{Log: log, MasterData: md}),
		Quantities:  f.quantities,
		Deductions:  f.deductions,
		Ledger:      f.ledger,
		Payments:    f.payments,
		AuditSvc:    f.audit,
	})
	return f
}

func (f *fixture) key(p *masterdomain.Product) quantitydomain.Key {
	return quantitydomain.Key{ProjectID: f.project.ID, WorkTypeID: f.workType.ID, ContractorID: f.contractor.ID, ProductID: p.ID}
}

func (f *fixture) setCap(p *masterdomain.Product, qty string) {
	_, err := f.quantities.SetContractQuantity(context.Background(), f.key(p), dec(qty))
	require.NoError(f.t, err)
}

func (f *fixture) request(date time.Time, lines ...domain.LineRequest) domain.CreateRequest {
	return domain.CreateRequest{
		ProjectID:     f.project.ID,
		WorkTypeID:    f.workType.ID,
		ContractorID:  f.contractor.ID,
		StatementDate: date,
		PeriodFrom:    date.AddDate(0, 0, -29),
		PeriodTo:      date,
		Lines:         lines,
		Actor:         "site.engineer",
	}
}

func (f *fixture) line(p *masterdomain.Product, qty, price string) domain.LineRequest {
	return domain.LineRequest{ProductID: p.ID, CurrentQty: dec(qty), UnitPrice: dec(price)}
}

// confirmed creates and confirms a statement billing qty of concrete.
func (f *fixture) confirmed(date time.Time, qty string) *domain.Statement {
	f.t.Helper()
	ctx := context.Background()
	st, err := f.svc.Create(ctx, f.request(date, f.line(f.concrete, qty, "200")))
	require.NoError(f.t, err)
	st, err = f.svc.Confirm(ctx, st.ID, "site.engineer")
	require.NoError(f.t, err)
	return st
}

func (f *fixture) accumulated(p *masterdomain.Product) decimal.Decimal {
	total, err := f.quantities.Lookup(context.Background(), nil, f.key(p))
	require.NoError(f.t, err)
	return total
}

func (f *fixture) countEntries() int64 {
	var n int64
	require.NoError(f.t, f.db.Model(&ledgerdomain.LedgerEntry{}).Count(&n).Error)
	return n
}
