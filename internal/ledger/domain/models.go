package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type SourceType string

const (
	SourceTypeStatement SourceType = "statement"
	SourceTypePayment   SourceType = "payment"
)

type EntryState string

const (
	EntryStateDraft  EntryState = "draft"
	EntryStatePosted EntryState = "posted"
)

// LedgerEntry is the journal entry header. One entry exists per source record.
type LedgerEntry struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID  snowflake.ID `gorm:"not null;index" json:"company_id"`
	JournalID  snowflake.ID `gorm:"not null;index" json:"journal_id"`
	Date       time.Time    `gorm:"type:date;not null" json:"date"`
	Reference  string       `gorm:"type:text;not null" json:"reference"`
	SourceType SourceType   `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_source,priority:1" json:"source_type"`
	SourceID   snowflake.ID `gorm:"not null;uniqueIndex:ux_ledger_entries_source,priority:2" json:"source_id"`
	State      EntryState   `gorm:"type:text;not null" json:"state"`
	PostedAt   *time.Time   `json:"posted_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`

	Lines []LedgerEntryLine `gorm:"foreignKey:LedgerEntryID" json:"lines,omitempty"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// LedgerEntryLine is one side of a double-entry posting. Exactly one of
// Debit and Credit is positive.
type LedgerEntryLine struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	LedgerEntryID snowflake.ID    `gorm:"not null;index" json:"ledger_entry_id"`
	AccountID     snowflake.ID    `gorm:"not null;index" json:"account_id"`
	PartnerID     *snowflake.ID   `json:"partner_id,omitempty"`
	Label         string          `gorm:"type:text;not null" json:"label"`
	Debit         decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"debit"`
	Credit        decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"credit"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
}

func (LedgerEntryLine) TableName() string { return "ledger_entry_lines" }

func Models() []any {
	return []any{&LedgerEntry{}, &LedgerEntryLine{}}
}
