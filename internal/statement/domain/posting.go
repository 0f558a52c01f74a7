package domain

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var Tolerance = decimal.RequireFromString("0.01")

type PostingLine struct {
	AccountID snowflake.ID
	PartnerID *snowflake.ID
	Label     string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

type ProductPosting struct {
	Name         string
	AccountID    *snowflake.ID
	CurrentValue decimal.Decimal
}

// TaxPosting must carry a resolved account. Zero amounts are skipped.
type TaxPosting struct {
	Name      string
	AccountID snowflake.ID
	Amount    decimal.Decimal
}

type PostingInput struct {
	Reference string

	Products []ProductPosting
	Taxes    []TaxPosting

	Gross           decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPayable      decimal.Decimal

	Advance            decimal.Decimal
	AdvanceAccountID   *snowflake.ID
	Retention          decimal.Decimal
	RetentionAccountID *snowflake.ID
	Other              decimal.Decimal
	OtherAccountID     *snowflake.ID

	ContractorID        snowflake.ID
	ContractorName      string
	ContractorAccountID *snowflake.ID
}

// BuildPosting turns an approved statement into balanced entry lines.
// Debits carry work value and taxes; credits carry deductions and the
// amount owed to the contractor.
func BuildPosting(in PostingInput) ([]PostingLine, error) {
	lines := make([]PostingLine, 0, len(in.Products)+len(in.Taxes)+4)

	for _, p := range in.Products {
		if !p.CurrentValue.IsPositive() {
			continue
		}
		if p.AccountID == nil {
			return nil, Invalid(ErrMissingProductAccount, "please configure account for product: %s", p.Name)
		}
		lines = append(lines, debit(*p.AccountID, nil, fmt.Sprintf("%s - %s", p.Name, in.Reference), p.CurrentValue))
	}

	for _, t := range in.Taxes {
		if !t.Amount.IsPositive() {
			continue
		}
		lines = append(lines, debit(t.AccountID, nil, fmt.Sprintf("Tax - %s", t.Name), t.Amount))
	}

	deductions := []struct {
		label     string
		amount    decimal.Decimal
		accountID *snowflake.ID
	}{
		{"Advance Payment Deduction", in.Advance, in.AdvanceAccountID},
		{"Retention", in.Retention, in.RetentionAccountID},
		{"Other Deductions", in.Other, in.OtherAccountID},
	}
	for _, d := range deductions {
		if !d.amount.IsPositive() {
			continue
		}
		if d.accountID == nil {
			return nil, Invalid(ErrMissingDeductionAccount, "%s account is not configured", d.label)
		}
		lines = append(lines, credit(*d.accountID, nil, fmt.Sprintf("%s - %s", d.label, in.Reference), d.amount))
	}

	if in.NetPayable.IsPositive() {
		if in.ContractorAccountID == nil {
			return nil, Invalid(ErrMissingPartnerAccount, "contractor %s has no payable or receivable account", in.ContractorName)
		}
		partner := in.ContractorID
		lines = append(lines, credit(*in.ContractorAccountID, &partner, fmt.Sprintf("Contractor - %s", in.ContractorName), in.NetPayable))
	}

	if err := CheckEquation(in.Gross, in.TaxAmount, in.TotalDeductions, in.NetPayable); err != nil {
		return nil, err
	}
	if err := CheckBalanced(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// CheckEquation verifies (gross + tax) against (deductions + net).
func CheckEquation(gross, tax, deductions, net decimal.Decimal) error {
	left := gross.Add(tax)
	right := deductions.Add(net)
	if left.Sub(right).Abs().GreaterThan(Tolerance) {
		return &UnbalancedEntryError{Check: "accounting_equation", Debit: left, Credit: right}
	}
	return nil
}

func CheckBalanced(lines []PostingLine) error {
	debits, credits := decimal.Zero, decimal.Zero
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	if debits.Sub(credits).Abs().GreaterThan(Tolerance) {
		return &UnbalancedEntryError{Check: "entry_lines", Debit: debits, Credit: credits}
	}
	return nil
}

func debit(account snowflake.ID, partner *snowflake.ID, label string, amount decimal.Decimal) PostingLine {
	return PostingLine{AccountID: account, PartnerID: partner, Label: label, Debit: amount, Credit: decimal.Zero}
}

func credit(account snowflake.ID, partner *snowflake.ID, label string, amount decimal.Decimal) PostingLine {
	return PostingLine{AccountID: account, PartnerID: partner, Label: label, Debit: decimal.Zero, Credit: amount}
}
