package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidJournal    = errors.New("invalid_journal")
	ErrInvalidSourceType = errors.New("invalid_source_type")
	ErrInvalidSourceID   = errors.New("invalid_source_id")
	ErrInvalidDate       = errors.New("invalid_entry_date")
	ErrInvalidEntryLines = errors.New("invalid_entry_lines")
	ErrInvalidAccount    = errors.New("invalid_account")
	ErrInvalidLineAmount = errors.New("invalid_line_amount")
	ErrUnbalancedEntry   = errors.New("unbalanced_entry")
	ErrEntryPosted       = errors.New("entry_already_posted")
	ErrNotFound          = errors.New("not_found")
)

// Tolerance is the largest debit/credit difference accepted as balanced.
var Tolerance = decimal.RequireFromString("0.01")

type LineInput struct {
	AccountID snowflake.ID
	PartnerID *snowflake.ID
	Label     string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

type CreateEntryInput struct {
	CompanyID  snowflake.ID
	JournalID  snowflake.ID
	Date       time.Time
	Reference  string
	SourceType SourceType
	SourceID   snowflake.ID
	Lines      []LineInput
}

// Service writes journal entries inside the caller's transaction.
type Service interface {
	CreateEntry(ctx context.Context, tx *gorm.DB, input CreateEntryInput) (snowflake.ID, error)
	Post(ctx context.Context, tx *gorm.DB, entryID snowflake.ID) error
	GetEntry(ctx context.Context, entryID snowflake.ID) (*LedgerEntry, error)
}

// Totals sums both sides of lines.
func Totals(lines []LineInput) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// ValidateBalanced checks every line is one-sided and non-negative and that
// both sides agree within Tolerance.
func ValidateBalanced(lines []LineInput) error {
	if len(lines) < 2 {
		return ErrInvalidEntryLines
	}
	for _, line := range lines {
		if line.AccountID == 0 {
			return ErrInvalidAccount
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return ErrInvalidLineAmount
		}
		if line.Debit.IsPositive() == line.Credit.IsPositive() {
			return ErrInvalidLineAmount
		}
	}
	debit, credit := Totals(lines)
	if debit.Sub(credit).Abs().GreaterThan(Tolerance) {
		return fmt.Errorf("%w: debit %s credit %s", ErrUnbalancedEntry, debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}
