package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTaxCompute(t *testing.T) {
	gross := decimal.NewFromInt(10000)

	vat := Tax{AmountType: AmountTypePercent, Amount: decimal.NewFromInt(14)}
	assert.True(t, vat.Compute(gross).Equal(decimal.NewFromInt(1400)))

	stamp := Tax{AmountType: AmountTypeFixed, Amount: decimal.RequireFromString("25.5")}
	assert.True(t, stamp.Compute(gross).Equal(decimal.RequireFromString("25.50")))

	// Percent taxes round to cents.
	odd := Tax{AmountType: AmountTypePercent, Amount: decimal.RequireFromString("2.5")}
	assert.Equal(t, "0.03", odd.Compute(decimal.NewFromInt(1)).StringFixed(2))
}

func TestTaxValidate(t *testing.T) {
	assert.ErrorIs(t, (&Tax{AmountType: "compound"}).Validate(), ErrInvalidAmountType)
	assert.ErrorIs(t, (&Tax{AmountType: AmountTypeFixed, Amount: decimal.NewFromInt(-1)}).Validate(), ErrInvalidAmount)
	assert.NoError(t, (&Tax{AmountType: AmountTypeFixed, Amount: decimal.Zero}).Validate())
}
