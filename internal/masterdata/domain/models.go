package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

type JournalType string

const (
	JournalTypeGeneral JournalType = "general"
	JournalTypeBank    JournalType = "bank"
	JournalTypeCash    JournalType = "cash"
)

func (t JournalType) Valid() bool {
	return t == JournalTypeGeneral || t == JournalTypeBank || t == JournalTypeCash
}

// ProductAccountType selects which of the product's accounts a statement line posts to.
type ProductAccountType string

const (
	ProductAccountIn  ProductAccountType = "in"
	ProductAccountOut ProductAccountType = "out"
)

type PaymentType string

const (
	PaymentTypeInbound  PaymentType = "inbound"
	PaymentTypeOutbound PaymentType = "outbound"
	PaymentTypeBoth     PaymentType = "both"
)

// Allows reports whether a method of this type can carry a payment in direction.
func (t PaymentType) Allows(direction string) bool {
	return t == PaymentTypeBoth || string(t) == direction
}

type Company struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	Code                string        `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name                string        `gorm:"type:text;not null" json:"name"`
	DefaultTaxAccountID *snowflake.ID `json:"default_tax_account_id,omitempty"`
	DefaultJournalID    *snowflake.ID `json:"default_journal_id,omitempty"`
	CreatedAt           time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null" json:"updated_at"`
}

func (Company) TableName() string { return "companies" }

// Account is a chart-of-accounts entry.
type Account struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;uniqueIndex:ux_accounts_company_code,priority:1" json:"company_id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex:ux_accounts_company_code,priority:2" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Type      AccountType  `gorm:"type:text;not null" json:"type"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Account) TableName() string { return "accounts" }

type Journal struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyID        snowflake.ID  `gorm:"not null;uniqueIndex:ux_journals_company_code,priority:1" json:"company_id"`
	Code             string        `gorm:"type:text;not null;uniqueIndex:ux_journals_company_code,priority:2" json:"code"`
	Name             string        `gorm:"type:text;not null" json:"name"`
	Type             JournalType   `gorm:"type:text;not null" json:"type"`
	DefaultAccountID *snowflake.ID `json:"default_account_id,omitempty"`
	Active           bool          `gorm:"not null;default:true" json:"active"`
	CreatedAt        time.Time     `gorm:"not null" json:"created_at"`
}

func (Journal) TableName() string { return "journals" }

type Project struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Project) TableName() string { return "projects" }

type WorkType struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (WorkType) TableName() string { return "work_types" }

// Contractor is the billed party. Sub contractors are paid from the payable
// account, main contractors settle through the receivable account.
type Contractor struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyID           snowflake.ID  `gorm:"not null;index" json:"company_id"`
	Name                string        `gorm:"type:text;not null" json:"name"`
	IsCompany           bool          `gorm:"not null" json:"is_company"`
	PayableAccountID    *snowflake.ID `json:"payable_account_id,omitempty"`
	ReceivableAccountID *snowflake.ID `json:"receivable_account_id,omitempty"`
	Active              bool          `gorm:"not null;default:true" json:"active"`
	CreatedAt           time.Time     `gorm:"not null" json:"created_at"`
}

func (Contractor) TableName() string { return "contractors" }

type Product struct {
	ID           snowflake.ID       `gorm:"primaryKey" json:"id"`
	Code         string             `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name         string             `gorm:"type:text;not null" json:"name"`
	Unit         string             `gorm:"type:text;not null" json:"unit"`
	WorkTypeID   snowflake.ID       `gorm:"not null;index" json:"work_type_id"`
	AccountType  ProductAccountType `gorm:"type:text;not null;default:'in'" json:"account_type"`
	InAccountID  *snowflake.ID      `json:"in_account_id,omitempty"`
	OutAccountID *snowflake.ID      `json:"out_account_id,omitempty"`
	Active       bool               `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time          `gorm:"not null" json:"created_at"`
}

func (Product) TableName() string { return "products" }

// PostingAccountID returns the account selected by the product's in/out flag.
func (p Product) PostingAccountID() *snowflake.ID {
	if p.AccountType == ProductAccountOut {
		return p.OutAccountID
	}
	return p.InAccountID
}

type PaymentMethod struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Code        string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	JournalID   snowflake.ID `gorm:"not null" json:"journal_id"`
	PaymentType PaymentType  `gorm:"type:text;not null;default:'both'" json:"payment_type"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

// Models lists every master data table for AutoMigrate.
func Models() []any {
	return []any{
		&Company{},
		&Account{},
		&Journal{},
		&Project{},
		&WorkType{},
		&Contractor{},
		&Product{},
		&PaymentMethod{},
	}
}
