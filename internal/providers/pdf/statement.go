package pdf

import (
	"context"
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrEmptyDocument = errors.New("empty_statement_document")

// StatementDocument is the printable form of a progress statement. Amounts
// arrive preformatted so the renderer stays free of money rules.
type StatementDocument struct {
	CompanyName    string
	Number         string
	Status         string
	StatementDate  string
	Period         string
	ProjectName    string
	WorkTypeName   string
	ContractorName string
	ContractorType string

	Lines []StatementDocumentLine

	GrossValue              string
	TaxAmount               string
	Subtotal                string
	AdvancePaymentDeduction string
	Retention               string
	OtherDeductions         string
	TotalDeductions         string
	NetPayable              string

	ContractorSignature   string
	ConsultantSignature   string
	ProjectOwnerSignature string
}

type StatementDocumentLine struct {
	Description  string
	Unit         string
	ContractQty  string
	PrevQty      string
	CurrentQty   string
	TotalQty     string
	Progress     string
	UnitPrice    string
	CurrentValue string
	TotalValue   string
}

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) RenderStatement(ctx context.Context, doc StatementDocument) ([]byte, error) {
	if doc.Number == "" {
		return nil, ErrEmptyDocument
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, doc.CompanyName, props.Text{Size: 14, Style: fontstyle.Bold}),
		text.NewCol(4, "Progress Statement", props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Statement: "+doc.Number, props.Text{Top: 0}),
			text.New("Date: "+doc.StatementDate, props.Text{Top: 5}),
			text.New("Work period: "+doc.Period, props.Text{Top: 10}),
			text.New("Status: "+doc.Status, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Project: "+doc.ProjectName, props.Text{Top: 0}),
			text.New("Work type: "+doc.WorkTypeName, props.Text{Top: 5}),
			text.New("Contractor: "+doc.ContractorName, props.Text{Top: 10}),
			text.New("Contractor type: "+doc.ContractorType, props.Text{Top: 15}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 7, Align: align.Right}
	m.AddRow(8,
		text.NewCol(3, "Item", props.Text{Style: fontstyle.Bold, Size: 7}),
		text.NewCol(1, "Contract", header),
		text.NewCol(1, "Previous", header),
		text.NewCol(1, "Current", header),
		text.NewCol(1, "Total", header),
		text.NewCol(1, "%", header),
		text.NewCol(2, "Unit price", header),
		text.NewCol(2, "Value", header),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 7, Align: align.Right}
	for _, l := range doc.Lines {
		m.AddRow(7,
			text.NewCol(3, l.Description+" ("+l.Unit+")", props.Text{Size: 7}),
			text.NewCol(1, l.ContractQty, cell),
			text.NewCol(1, l.PrevQty, cell),
			text.NewCol(1, l.CurrentQty, cell),
			text.NewCol(1, l.TotalQty, cell),
			text.NewCol(1, l.Progress, cell),
			text.NewCol(2, l.UnitPrice, cell),
			text.NewCol(2, l.CurrentValue, cell),
		)
	}
	m.AddRow(2, line.NewCol(12))

	totals := []struct {
		label, value string
		bold         bool
	}{
		{"Gross value", doc.GrossValue, false},
		{"Tax", doc.TaxAmount, false},
		{"Subtotal", doc.Subtotal, true},
		{"Advance payment deduction", doc.AdvancePaymentDeduction, false},
		{"Retention", doc.Retention, false},
		{"Other deductions", doc.OtherDeductions, false},
		{"Total deductions", doc.TotalDeductions, false},
		{"Net payable", doc.NetPayable, true},
	}
	for _, row := range totals {
		style := props.Text{Size: 8}
		if row.bold {
			style.Style = fontstyle.Bold
		}
		valueStyle := style
		valueStyle.Align = align.Right
		m.AddRow(6,
			col.New(6),
			text.NewCol(4, row.label, style),
			text.NewCol(2, row.value, valueStyle),
		)
	}

	m.AddRow(20)
	m.AddRow(6,
		text.NewCol(4, "Contractor", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center}),
		text.NewCol(4, "Consultant", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center}),
		text.NewCol(4, "Project owner", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center}),
	)
	m.AddRow(10,
		text.NewCol(4, doc.ContractorSignature, props.Text{Size: 8, Align: align.Center}),
		text.NewCol(4, doc.ConsultantSignature, props.Text{Size: 8, Align: align.Center}),
		text.NewCol(4, doc.ProjectOwnerSignature, props.Text{Size: 8, Align: align.Center}),
	)

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}
