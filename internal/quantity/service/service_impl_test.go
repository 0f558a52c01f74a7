package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sitebill/internal/clock"
	"github.com/smallbiznis/sitebill/internal/quantity/domain"
	"github.com/smallbiznis/sitebill/internal/quantity/repository"
	"github.com/smallbiznis/sitebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// billedStatement and billedLine mirror the statement tables the fallback reads.
type billedStatement struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	ProjectID     snowflake.ID
	WorkTypeID    snowflake.ID
	ContractorID  snowflake.ID
	StatementDate time.Time
	Status        string
}

func (billedStatement) TableName() string { return "statements" }

type billedLine struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	StatementID snowflake.ID
	ProductID   snowflake.ID
	CurrentQty  decimal.Decimal `gorm:"type:numeric(18,4)"`
}

func (billedLine) TableName() string { return "statement_lines" }

var testKey = domain.Key{ProjectID: 1, WorkTypeID: 2, ContractorID: 3, ProductID: 4}

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	models := append(domain.Models(), &billedStatement{}, &billedLine{})
	conn := testutil.NewDB(t, models...)
	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, conn
}

func bill(t *testing.T, conn *gorm.DB, id snowflake.ID, date time.Time, status string, qty string) {
	t.Helper()
	require.NoError(t, conn.Create(&billedStatement{
		ID: id, ProjectID: testKey.ProjectID, WorkTypeID: testKey.WorkTypeID, ContractorID: testKey.ContractorID,
		StatementDate: date, Status: status,
	}).Error)
	require.NoError(t, conn.Create(&billedLine{
		ID: id*10 + 1, StatementID: id, ProductID: testKey.ProductID, CurrentQty: decimal.RequireFromString(qty),
	}).Error)
}

func qty(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestAccrueRoundTripRemovesEntry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	total, err := svc.Accrue(ctx, nil, testKey, qty("40"))
	require.NoError(t, err)
	assert.Equal(t, "40", total.String())

	total, err = svc.Accrue(ctx, nil, testKey, qty("50"))
	require.NoError(t, err)
	assert.Equal(t, "90", total.String())

	total, err = svc.Accrue(ctx, nil, testKey, qty("-50"))
	require.NoError(t, err)
	assert.Equal(t, "40", total.String())

	_, err = svc.Accrue(ctx, nil, testKey, qty("-40"))
	require.NoError(t, err)

	looked, err := svc.Lookup(ctx, nil, testKey)
	require.NoError(t, err)
	assert.True(t, looked.IsZero())

	entries, err := svc.ListEntries(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAccrueReversalWithoutEntryIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	total, err := svc.Accrue(ctx, nil, testKey, qty("-5"))
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	entries, err := svc.ListEntries(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = svc.Accrue(ctx, nil, domain.Key{ProjectID: 1}, qty("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestConcurrentAccrualsAreAllReflected(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- conn.Transaction(func(tx *gorm.DB) error {
				_, err := svc.Accrue(ctx, tx, testKey, qty("2.5"))
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	total, err := svc.Lookup(ctx, nil, testKey)
	require.NoError(t, err)
	assert.True(t, total.Equal(qty("25")), "got %s", total)
}

func TestPreviousQuantityFallsBackToBilledLines(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	jan := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	bill(t, conn, 100, jan, "approved", "40")
	bill(t, conn, 200, feb, "draft", "10")
	bill(t, conn, 300, mar, "confirmed", "7")

	prev, err := svc.PreviousQuantity(ctx, nil, testKey, mar, 300)
	require.NoError(t, err)
	assert.Equal(t, "40", prev.String())

	hist, err := svc.HistoricalQuantity(ctx, nil, testKey, mar.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "47", hist.String())

	_, err = svc.Accrue(ctx, nil, testKey, qty("12"))
	require.NoError(t, err)
	prev, err = svc.PreviousQuantity(ctx, nil, testKey, mar, 300)
	require.NoError(t, err)
	assert.Equal(t, "12", prev.String())
}

func TestReconcileAndBackfill(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	bill(t, conn, 100, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), "paid", "40")
	bill(t, conn, 200, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), "confirmed", "50")

	rec, err := svc.Reconcile(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, rec.Tracked)
	assert.Equal(t, "-90", rec.Drift.String())

	rec, err = svc.Backfill(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, rec.Tracked)
	assert.True(t, rec.InSync())
	assert.Equal(t, "90", rec.Ledger.String())

	// A tracked key is never overwritten.
	rec, err = svc.Backfill(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "90", rec.Ledger.String())
}

func TestContractQuantityUpsert(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	contractCap, err := svc.ContractQuantity(ctx, nil, testKey)
	require.NoError(t, err)
	assert.True(t, contractCap.IsZero())

	_, err = svc.SetContractQuantity(ctx, testKey, qty("100"))
	require.NoError(t, err)
	cq, err := svc.SetContractQuantity(ctx, testKey, qty("120"))
	require.NoError(t, err)
	assert.Equal(t, "120", cq.ContractQty.String())

	_, err = svc.SetContractQuantity(ctx, testKey, qty("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
