package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func buckets() []Bucket {
	small, medium, large := d("50000"), d("200000"), d("500000")
	return []Bucket{
		{Label: "small", Max: &small},
		{Label: "medium", Max: &medium},
		{Label: "large", Max: &large},
		{Label: "xlarge"},
	}
}

func TestProgressRange(t *testing.T) {
	cases := map[string]string{
		"0":      "0-25",
		"25.99":  "0-25",
		"26":     "26-50",
		"50.5":   "26-50",
		"75":     "51-75",
		"99.99":  "76-100",
		"100":    "completed",
		"120.50": "completed",
	}
	for pct, want := range cases {
		assert.Equal(t, want, ProgressRange(d(pct)), pct)
	}
}

func TestValueRange(t *testing.T) {
	assert.Equal(t, "small", ValueRange(buckets(), d("49999.99")))
	assert.Equal(t, "medium", ValueRange(buckets(), d("50000")))
	assert.Equal(t, "large", ValueRange(buckets(), d("499999")))
	assert.Equal(t, "xlarge", ValueRange(buckets(), d("500000")))
	assert.Equal(t, "", ValueRange(nil, d("1")))
}

func TestDerive(t *testing.T) {
	r := Row{
		StatementDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		PeriodFrom:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodTo:        time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		ContractQty:     d("100"),
		TotalQty:        d("90"),
		TotalValue:      d("18000"),
		ProgressPercent: d("90"),
		NetPayable:      d("60000"),
	}
	r.Derive(buckets())

	assert.Equal(t, "10", r.RemainingQty.String())
	assert.Equal(t, "0.9", r.EfficiencyRatio.String())
	assert.Equal(t, "-10", r.VariancePercent.String())
	assert.Equal(t, "200", r.CostPerUnit.String())
	assert.Equal(t, "76-100", r.ProgressRange)
	assert.Equal(t, "medium", r.ValueRange)
	assert.Equal(t, 30, r.WorkDurationDays)
	assert.Equal(t, "March 2024", r.Month)
	assert.Equal(t, "2024", r.Year)
	assert.Equal(t, "Q1 2024", r.Quarter)
	assert.Equal(t, "2024-W13", r.Week)
}

func TestDeriveWithoutContract(t *testing.T) {
	r := Row{TotalQty: d("5"), TotalValue: d("50")}
	r.Derive(buckets())

	assert.True(t, r.RemainingQty.IsZero())
	assert.True(t, r.EfficiencyRatio.IsZero())
	assert.True(t, r.VariancePercent.IsZero())
	assert.Equal(t, "10", r.CostPerUnit.String())
	assert.Equal(t, "0-25", r.ProgressRange)
	assert.Empty(t, r.Month)
}
