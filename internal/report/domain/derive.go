package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Bucket is an upper-bounded value range. A nil Max is open ended.
type Bucket struct {
	Label string
	Max   *decimal.Decimal
}

// ProgressRange classifies a progress percentage into quarter bands.
func ProgressRange(pct decimal.Decimal) string {
	switch {
	case pct.LessThan(decimal.NewFromInt(26)):
		return "0-25"
	case pct.LessThan(decimal.NewFromInt(51)):
		return "26-50"
	case pct.LessThan(decimal.NewFromInt(76)):
		return "51-75"
	case pct.LessThan(hundred):
		return "76-100"
	default:
		return "completed"
	}
}

// ValueRange returns the label of the first bucket whose Max is above amount.
func ValueRange(buckets []Bucket, amount decimal.Decimal) string {
	for _, b := range buckets {
		if b.Max == nil || amount.LessThan(*b.Max) {
			return b.Label
		}
	}
	if len(buckets) == 0 {
		return ""
	}
	return buckets[len(buckets)-1].Label
}

// Derive fills the computed analysis columns of r from its stored figures.
func (r *Row) Derive(buckets []Bucket) {
	r.RemainingQty = decimal.Zero
	r.EfficiencyRatio = decimal.Zero
	r.VariancePercent = decimal.Zero
	if r.ContractQty.IsPositive() {
		r.RemainingQty = r.ContractQty.Sub(r.TotalQty)
		r.EfficiencyRatio = r.TotalQty.DivRound(r.ContractQty, 4)
		r.VariancePercent = r.TotalQty.Sub(r.ContractQty).Mul(hundred).DivRound(r.ContractQty, 2)
	}
	r.CostPerUnit = decimal.Zero
	if r.TotalQty.IsPositive() {
		r.CostPerUnit = r.TotalValue.DivRound(r.TotalQty, 2)
	}
	r.ProgressRange = ProgressRange(r.ProgressPercent)
	r.ValueRange = ValueRange(buckets, r.NetPayable)

	r.WorkDurationDays = 0
	if !r.PeriodFrom.IsZero() && !r.PeriodTo.IsZero() {
		r.WorkDurationDays = int(r.PeriodTo.Sub(r.PeriodFrom).Hours() / 24)
	}

	d := r.StatementDate
	if d.IsZero() {
		return
	}
	year, week := d.ISOWeek()
	r.Month = d.Format("January 2006")
	r.Year = d.Format("2006")
	r.Quarter = fmt.Sprintf("Q%d %d", (int(d.Month())-1)/3+1, d.Year())
	r.Week = fmt.Sprintf("%d-W%02d", year, week)
}
