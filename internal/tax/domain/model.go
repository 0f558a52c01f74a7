package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AmountType controls how a tax is computed from the statement gross value.
type AmountType string

const (
	AmountTypePercent AmountType = "percent" // gross * amount / 100
	AmountTypeFixed   AmountType = "fixed"   // amount as-is
)

var hundred = decimal.NewFromInt(100)

// Tax is a company-scoped tax definition. AccountID is the repartition
// account that receives the tax amount when a statement is posted.
type Tax struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	CompanyID  snowflake.ID    `gorm:"not null;index" json:"company_id"`
	Name       string          `gorm:"type:text;not null" json:"name"`
	AmountType AmountType      `gorm:"type:text;not null" json:"amount_type"`
	Amount     decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"amount"`
	AccountID  *snowflake.ID   `json:"account_id,omitempty"`
	Active     bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}

func (Tax) TableName() string { return "taxes" }

func (t *Tax) Validate() error {
	if t.AmountType != AmountTypePercent && t.AmountType != AmountTypeFixed {
		return ErrInvalidAmountType
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Compute returns the tax amount for base, rounded to currency precision.
func (t Tax) Compute(base decimal.Decimal) decimal.Decimal {
	switch t.AmountType {
	case AmountTypePercent:
		return base.Mul(t.Amount).Div(hundred).Round(2)
	case AmountTypeFixed:
		return t.Amount.Round(2)
	default:
		return decimal.Zero
	}
}
