package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sitebill/internal/clock"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	"github.com/smallbiznis/sitebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (ledgerdomain.Service, *gorm.DB) {
	conn := testutil.NewDB(t, ledgerdomain.Models()...)
	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	return svc, conn
}

func sampleInput() ledgerdomain.CreateEntryInput {
	return ledgerdomain.CreateEntryInput{
		CompanyID:  1,
		JournalID:  2,
		Date:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Reference:  "P1-WT1-001",
		SourceType: ledgerdomain.SourceTypeStatement,
		SourceID:   99,
		Lines: []ledgerdomain.LineInput{
			{AccountID: 10, Label: "Concrete", Debit: decimal.NewFromInt(1000)},
			{AccountID: 20, Label: "Contractor - Acme", Credit: decimal.NewFromInt(1000)},
		},
	}
}

func TestCreateEntryIsExactlyOncePerSource(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateEntry(ctx, conn, sampleInput())
	require.NoError(t, err)
	second, err := svc.CreateEntry(ctx, conn, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, conn.Model(&ledgerdomain.LedgerEntryLine{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	entry, err := svc.GetEntry(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStateDraft, entry.State)
	assert.Len(t, entry.Lines, 2)
}

func TestCreateEntryRejectsUnbalancedLines(t *testing.T) {
	svc, conn := newTestService(t)
	input := sampleInput()
	input.Lines[1].Credit = decimal.NewFromInt(900)

	_, err := svc.CreateEntry(context.Background(), conn, input)
	assert.ErrorIs(t, err, ledgerdomain.ErrUnbalancedEntry)
}

func TestPostIsIrreversible(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateEntry(ctx, conn, sampleInput())
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, conn, id))
	assert.ErrorIs(t, svc.Post(ctx, conn, id), ledgerdomain.ErrEntryPosted)

	entry, err := svc.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatePosted, entry.State)
	assert.NotNil(t, entry.PostedAt)

	assert.ErrorIs(t, svc.Post(ctx, conn, 12345), ledgerdomain.ErrNotFound)
}
