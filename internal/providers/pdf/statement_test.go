package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStatement(t *testing.T) {
	doc := StatementDocument{
		CompanyName:    "Main Company",
		Number:         "P1-WT1-001",
		Status:         "approved",
		StatementDate:  "2024-03-31",
		Period:         "2024-03-01 - 2024-03-31",
		ProjectName:    "Tower",
		WorkTypeName:   "Structure",
		ContractorName: "Acme Builders",
		ContractorType: "main",
		Lines: []StatementDocumentLine{
			{Description: "Concrete", Unit: "m3", ContractQty: "100", PrevQty: "0", CurrentQty: "50", TotalQty: "50", Progress: "50.00", UnitPrice: "200.00", CurrentValue: "10000.00", TotalValue: "10000.00"},
		},
		GrossValue: "10000.00",
		NetPayable: "10900.00",
	}

	out, err := New().RenderStatement(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderStatementRequiresNumber(t *testing.T) {
	_, err := New().RenderStatement(context.Background(), StatementDocument{})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}
