package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sitebill/internal/clock"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/sitebill/internal/ledger/service"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	masterrepo "github.com/smallbiznis/sitebill/internal/masterdata/repository"
	paymentdomain "github.com/smallbiznis/sitebill/internal/payment/domain"
	"github.com/smallbiznis/sitebill/internal/payment/repository"
	"github.com/smallbiznis/sitebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	svc        paymentdomain.Service
	ledger     ledgerdomain.Service
	company    snowflake.ID
	journal    *masterdomain.Journal
	contractor *masterdomain.Contractor
}

func newFixture(t *testing.T) fixture {
	models := append(masterdomain.Models(), ledgerdomain.Models()...)
	models = append(models, &paymentdomain.Payment{})
	conn := testutil.NewDB(t, models...)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	md := masterrepo.NewRepository(conn)
	ctx := context.Background()

	company := &masterdomain.Company{ID: node.Generate(), Code: "MAIN", Name: "Main", CreatedAt: clk.Now(), UpdatedAt: clk.Now()}
	require.NoError(t, md.Create(ctx, company))

	account := func(code string, typ masterdomain.AccountType) snowflake.ID {
		a := &masterdomain.Account{ID: node.Generate(), CompanyID: company.ID, Code: code, Name: code, Type: typ, CreatedAt: clk.Now()}
		require.NoError(t, md.Create(ctx, a))
		return a.ID
	}
	bankAccount := account("1010", masterdomain.AccountTypeAsset)
	payable := account("2010", masterdomain.AccountTypeLiability)
	receivable := account("1210", masterdomain.AccountTypeAsset)

	journal := &masterdomain.Journal{ID: node.Generate(), CompanyID: company.ID, Code: "BNK", Name: "Bank", Type: masterdomain.JournalTypeBank, DefaultAccountID: &bankAccount, Active: true, CreatedAt: clk.Now()}
	require.NoError(t, md.Create(ctx, journal))
	contractor := &masterdomain.Contractor{ID: node.Generate(), CompanyID: company.ID, Name: "Acme Builders", IsCompany: true, PayableAccountID: &payable, ReceivableAccountID: &receivable, Active: true, CreatedAt: clk.Now()}
	require.NoError(t, md.Create(ctx, contractor))

	ledger := ledgerservice.NewService(ledgerservice.Params{DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk})
	svc := NewService(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Repo:       repository.Provide(),
		MasterData: md,
		LedgerSvc:  ledger,
	})
	return fixture{db: conn, svc: svc, ledger: ledger, company: company.ID, journal: journal, contractor: contractor}
}

func (f fixture) input(direction paymentdomain.Direction) paymentdomain.CreatePaymentInput {
	return paymentdomain.CreatePaymentInput{
		CompanyID: f.company,
		Direction: direction,
		PartnerID: f.contractor.ID,
		Amount:    decimal.RequireFromString("10900"),
		JournalID: f.journal.ID,
		Date:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Reference: "P1-WT1-001",
	}
}

func TestPostOutboundPaymentDebitsPayable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreatePayment(ctx, f.db, f.input(paymentdomain.DirectionOutbound))
	require.NoError(t, err)
	require.NoError(t, f.svc.Post(ctx, f.db, id))
	assert.ErrorIs(t, f.svc.Post(ctx, f.db, id), paymentdomain.ErrAlreadyPosted)

	payment, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatePosted, payment.State)
	require.NotNil(t, payment.LedgerEntryID)

	entry, err := f.ledger.GetEntry(ctx, *payment.LedgerEntryID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatePosted, entry.State)
	require.Len(t, entry.Lines, 2)
	for _, line := range entry.Lines {
		switch line.AccountID {
		case *f.contractor.PayableAccountID:
			assert.True(t, line.Debit.Equal(decimal.NewFromInt(10900)))
		case *f.journal.DefaultAccountID:
			assert.True(t, line.Credit.Equal(decimal.NewFromInt(10900)))
		default:
			t.Fatalf("unexpected account %s", line.AccountID)
		}
	}
}

func TestPostInboundPaymentCreditsReceivable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreatePayment(ctx, f.db, f.input(paymentdomain.DirectionInbound))
	require.NoError(t, err)
	require.NoError(t, f.svc.Post(ctx, f.db, id))

	payment, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	entry, err := f.ledger.GetEntry(ctx, *payment.LedgerEntryID)
	require.NoError(t, err)
	for _, line := range entry.Lines {
		if line.AccountID == *f.contractor.ReceivableAccountID {
			assert.True(t, line.Credit.Equal(decimal.NewFromInt(10900)))
			require.NotNil(t, line.PartnerID)
			assert.Equal(t, f.contractor.ID, *line.PartnerID)
		}
	}
}

func TestCreatePaymentValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("sideways")
	_, err := f.svc.CreatePayment(ctx, f.db, in)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidDirection)

	in = f.input(paymentdomain.DirectionOutbound)
	in.Amount = decimal.Zero
	_, err = f.svc.CreatePayment(ctx, f.db, in)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)
}
