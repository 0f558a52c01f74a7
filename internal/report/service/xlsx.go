package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sitebill/internal/report/domain"
	statementdomain "github.com/smallbiznis/sitebill/internal/statement/domain"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	linesSheet    = "Lines"
	analysisSheet = "Analysis"
)

// money renders a decimal as a float cell. Spreadsheets only carry floats.
func money(v decimal.Decimal) float64 {
	f, _ := v.Round(2).Float64()
	return f
}

func qty(v decimal.Decimal) float64 {
	f, _ := v.Float64()
	return f
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func boldHeader(f *excelize.File, sheet string, columns int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func statementWorkbook(st *statementdomain.Statement, names labels) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"Progress Statement", st.Number},
		{"Company", names.company},
		{"Status", string(st.Status)},
		{"Statement date", st.StatementDate.Format(time.DateOnly)},
		{"Work period from", st.PeriodFrom.Format(time.DateOnly)},
		{"Work period to", st.PeriodTo.Format(time.DateOnly)},
		{"Project", names.project},
		{"Work type", names.workType},
		{"Contractor", names.contractor},
		{"Contractor type", string(st.ContractorType)},
		{},
		{"Gross value", money(st.GrossValue)},
		{"Tax", money(st.TaxAmount)},
		{"Subtotal", money(st.Subtotal)},
		{"Advance payment deduction", money(st.AdvancePaymentDeduction)},
		{"Retention %", qty(st.RetentionPercentage)},
		{"Retention", money(st.Retention)},
		{"Other deductions", money(st.OtherDeductions)},
		{"Total deductions", money(st.TotalDeductions)},
		{"Net payable", money(st.NetPayable)},
	}
	for i, values := range summary {
		if err := setRow(f, summarySheet, i+1, values...); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, err
	}
	header := []any{"Item", "Unit", "Contract qty", "Previous qty", "Current qty", "Total qty", "Progress %", "Unit price", "Current value", "Total value"}
	if err := setRow(f, linesSheet, 1, header...); err != nil {
		return nil, err
	}
	if err := boldHeader(f, linesSheet, len(header)); err != nil {
		return nil, err
	}
	for i, l := range st.Lines {
		if err := setRow(f, linesSheet, i+2,
			l.Description, l.Unit,
			qty(l.ContractQty), qty(l.PrevQty), qty(l.CurrentQty), qty(l.TotalQty),
			money(l.ProgressPercent), money(l.UnitPrice), money(l.CurrentValue), money(l.TotalValue),
		); err != nil {
			return nil, err
		}
	}

	return write(f)
}

func analysisWorkbook(rows []domain.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", analysisSheet); err != nil {
		return nil, err
	}
	header := []any{
		"Statement", "Date", "Status", "Project", "Work type", "Contractor", "Contractor type", "Item",
		"Contract qty", "Previous qty", "Current qty", "Total qty", "Remaining qty",
		"Progress %", "Progress range", "Unit price", "Current value", "Total value", "Net payable", "Value range",
		"Cost per unit", "Efficiency ratio", "Variance %", "Work days", "Month", "Quarter", "Week",
	}
	if err := setRow(f, analysisSheet, 1, header...); err != nil {
		return nil, err
	}
	if err := boldHeader(f, analysisSheet, len(header)); err != nil {
		return nil, err
	}
	for i, r := range rows {
		if err := setRow(f, analysisSheet, i+2,
			r.Number, r.StatementDate.Format(time.DateOnly), r.Status, r.ProjectName, r.WorkTypeName, r.ContractorName, r.ContractorType, r.ProductName,
			qty(r.ContractQty), qty(r.PrevQty), qty(r.CurrentQty), qty(r.TotalQty), qty(r.RemainingQty),
			money(r.ProgressPercent), r.ProgressRange, money(r.UnitPrice), money(r.CurrentValue), money(r.TotalValue), money(r.NetPayable), r.ValueRange,
			money(r.CostPerUnit), qty(r.EfficiencyRatio), money(r.VariancePercent), r.WorkDurationDays, r.Month, r.Quarter, r.Week,
		); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(analysisSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	return write(f)
}

func write(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
