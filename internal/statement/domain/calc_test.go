package domain

import (
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeLineWithinContract(t *testing.T) {
	figures, err := ComputeLine(LineInput{
		Label:       "Excavation",
		ContractQty: d("100"),
		PrevQty:     d("40"),
		CurrentQty:  d("50"),
		UnitPrice:   d("12.5"),
	})
	require.NoError(t, err)

	assert.Equal(t, "90", figures.TotalQty.String())
	assert.Equal(t, "90.00", figures.ProgressPercent.StringFixed(2))
	assert.Equal(t, "625.00", figures.CurrentValue.StringFixed(2))
	assert.Equal(t, "1125.00", figures.TotalValue.StringFixed(2))
}

func TestComputeLineRejectsOverrun(t *testing.T) {
	_, err := ComputeLine(LineInput{
		Label:       "Excavation",
		ContractQty: d("100"),
		PrevQty:     d("40"),
		CurrentQty:  d("70"),
		UnitPrice:   d("1"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuantityExceeded)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "total quantity (110) cannot exceed contract quantity (100) for item: Excavation")
}

func TestComputeLineZeroContract(t *testing.T) {
	figures, err := ComputeLine(LineInput{Label: "x", CurrentQty: decimal.Zero, UnitPrice: d("3")})
	require.NoError(t, err)
	assert.True(t, figures.ProgressPercent.IsZero())

	_, err = ComputeLine(LineInput{Label: "x", CurrentQty: d("1"), UnitPrice: d("3")})
	assert.ErrorIs(t, err, ErrQuantityExceeded)
}

func TestComputeLineRejectsNegativeInput(t *testing.T) {
	_, err := ComputeLine(LineInput{Label: "x", ContractQty: d("10"), CurrentQty: d("-1")})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = ComputeLine(LineInput{Label: "x", ContractQty: d("10"), CurrentQty: d("1"), UnitPrice: d("-2")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAggregateStatementTotals(t *testing.T) {
	gross := d("10000")
	retention := RetentionFor(gross, d("5"))
	assert.Equal(t, "500.00", retention.StringFixed(2))

	totals := Aggregate(AggregateInput{
		LineValues: []decimal.Decimal{d("6000"), d("4000")},
		Taxes: []taxdomain.Tax{
			{ID: snowflake.ID(7), Name: "VAT 14%", AmountType: taxdomain.AmountTypePercent, Amount: d("14")},
		},
		Advance:   decimal.Zero,
		Retention: retention,
		Other:     decimal.Zero,
	})

	assert.Equal(t, "10000.00", totals.Gross.StringFixed(2))
	assert.Equal(t, "1400.00", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "11400.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "500.00", totals.TotalDeductions.StringFixed(2))
	assert.Equal(t, "10900.00", totals.NetPayable.StringFixed(2))
	require.Len(t, totals.TaxAmounts, 1)
	assert.Equal(t, snowflake.ID(7), totals.TaxAmounts[0].TaxID)
}

func TestAggregateMixedTaxes(t *testing.T) {
	totals := Aggregate(AggregateInput{
		LineValues: []decimal.Decimal{d("1000")},
		Taxes: []taxdomain.Tax{
			{Name: "VAT", AmountType: taxdomain.AmountTypePercent, Amount: d("10")},
			{Name: "Stamp", AmountType: taxdomain.AmountTypeFixed, Amount: d("15")},
		},
		Advance: d("200"),
		Other:   d("50"),
	})
	assert.Equal(t, "115.00", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "1115.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "250.00", totals.TotalDeductions.StringFixed(2))
	assert.Equal(t, "865.00", totals.NetPayable.StringFixed(2))
}

func TestValidationErrorUnwraps(t *testing.T) {
	err := Invalid(ErrInvalidPeriod, "work period 'From' date must be before 'To' date")
	var target *ValidationError
	require.True(t, errors.As(err, &target))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.False(t, IsConfiguration(err))
}
