package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
)

var hundred = decimal.NewFromInt(100)

// LineInput carries everything the calculator needs for one line.
// ContractQty and PrevQty come from the registry and quantity ledger.
type LineInput struct {
	Label       string
	ContractQty decimal.Decimal
	PrevQty     decimal.Decimal
	CurrentQty  decimal.Decimal
	UnitPrice   decimal.Decimal
}

type LineFigures struct {
	ContractQty     decimal.Decimal
	PrevQty         decimal.Decimal
	TotalQty        decimal.Decimal
	ProgressPercent decimal.Decimal
	CurrentValue    decimal.Decimal
	TotalValue      decimal.Decimal
}

// ComputeLine derives the cumulative figures of a line. A total above the
// contract quantity is rejected, never clamped.
func ComputeLine(in LineInput) (LineFigures, error) {
	if in.CurrentQty.IsNegative() {
		return LineFigures{}, Invalid(ErrInvalidQuantity, "current quantity cannot be negative for item: %s", in.Label)
	}
	if in.UnitPrice.IsNegative() {
		return LineFigures{}, Invalid(ErrInvalidAmount, "unit price cannot be negative for item: %s", in.Label)
	}

	total := in.PrevQty.Add(in.CurrentQty)
	if total.GreaterThan(in.ContractQty) {
		return LineFigures{}, Invalid(ErrQuantityExceeded,
			"total quantity (%s) cannot exceed contract quantity (%s) for item: %s",
			total.String(), in.ContractQty.String(), in.Label)
	}

	progress := decimal.Zero
	if in.ContractQty.IsPositive() {
		progress = total.Mul(hundred).Div(in.ContractQty).Round(2)
	}

	return LineFigures{
		ContractQty:     in.ContractQty,
		PrevQty:         in.PrevQty,
		TotalQty:        total,
		ProgressPercent: progress,
		CurrentValue:    in.CurrentQty.Mul(in.UnitPrice).Round(2),
		TotalValue:      total.Mul(in.UnitPrice).Round(2),
	}, nil
}

// Apply copies computed figures onto the persisted line.
func (l *StatementLine) Apply(f LineFigures) {
	l.ContractQty = f.ContractQty
	l.PrevQty = f.PrevQty
	l.TotalQty = f.TotalQty
	l.ProgressPercent = f.ProgressPercent
	l.CurrentValue = f.CurrentValue
	l.TotalValue = f.TotalValue
}

type AggregateInput struct {
	LineValues []decimal.Decimal
	Taxes      []taxdomain.Tax
	Advance    decimal.Decimal
	Retention  decimal.Decimal
	Other      decimal.Decimal
}

type TaxAmount struct {
	TaxID  snowflake.ID
	Name   string
	Amount decimal.Decimal
}

type Totals struct {
	Gross           decimal.Decimal
	TaxAmount       decimal.Decimal
	TaxAmounts      []TaxAmount
	Subtotal        decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPayable      decimal.Decimal
}

func Aggregate(in AggregateInput) Totals {
	gross := decimal.Zero
	for _, v := range in.LineValues {
		gross = gross.Add(v)
	}
	gross = gross.Round(2)

	totals := Totals{Gross: gross, TaxAmount: decimal.Zero}
	for _, t := range in.Taxes {
		amount := t.Compute(gross)
		totals.TaxAmounts = append(totals.TaxAmounts, TaxAmount{TaxID: t.ID, Name: t.Name, Amount: amount})
		totals.TaxAmount = totals.TaxAmount.Add(amount)
	}

	totals.Subtotal = gross.Add(totals.TaxAmount)
	totals.TotalDeductions = in.Advance.Add(in.Retention).Add(in.Other).Round(2)
	totals.NetPayable = totals.Subtotal.Sub(totals.TotalDeductions)
	return totals
}

// RetentionFor returns gross * pct / 100 at currency precision.
func RetentionFor(gross, pct decimal.Decimal) decimal.Decimal {
	return gross.Mul(pct).Div(hundred).Round(2)
}

// ApplyTotals stores aggregated money fields on the header.
func (s *Statement) ApplyTotals(t Totals) {
	s.GrossValue = t.Gross
	s.TaxAmount = t.TaxAmount
	s.Subtotal = t.Subtotal
	s.TotalDeductions = t.TotalDeductions
	s.NetPayable = t.NetPayable
}

// LineValues lists the current value of every line.
func (s *Statement) LineValues() []decimal.Decimal {
	values := make([]decimal.Decimal, 0, len(s.Lines))
	for _, l := range s.Lines {
		values = append(values, l.CurrentValue)
	}
	return values
}
