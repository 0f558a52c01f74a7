package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	masterrepo "github.com/smallbiznis/sitebill/internal/masterdata/repository"
	"github.com/smallbiznis/sitebill/internal/report/domain"
	statementdomain "github.com/smallbiznis/sitebill/internal/statement/domain"
	statementrepo "github.com/smallbiznis/sitebill/internal/statement/repository"
	"github.com/smallbiznis/sitebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// statementReader serves Get from the repository; other methods are unused.
type statementReader struct {
	statementdomain.Service
	db   *gorm.DB
	repo statementdomain.Repository
}

func (r statementReader) Get(ctx context.Context, id snowflake.ID) (*statementdomain.Statement, error) {
	st, err := r.repo.FindByID(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, statementdomain.ErrNotFound
	}
	return st, nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type reportFixture struct {
	svc        domain.Service
	project    *masterdomain.Project
	statements []*statementdomain.Statement
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	models := append([]any{}, masterdomain.Models()...)
	models = append(models, statementdomain.Models()...)
	conn := testutil.NewDB(t, models...)
	node := testutil.NewNode(t)
	ctx := context.Background()
	md := masterrepo.NewRepository(conn)
	repo := statementrepo.Provide()
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

	company := &masterdomain.Company{ID: node.Generate(), Code: "MAIN", Name: "Main Company", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, md.Create(ctx, company))
	project := &masterdomain.Project{ID: node.Generate(), CompanyID: company.ID, Code: "P1", Name: "Tower", Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, project))
	workType := &masterdomain.WorkType{ID: node.Generate(), Code: "WT1", Name: "Structure", Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, workType))
	contractor := &masterdomain.Contractor{ID: node.Generate(), CompanyID: company.ID, Name: "Acme Builders", IsCompany: true, Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, contractor))
	concrete := &masterdomain.Product{ID: node.Generate(), Code: "CON", Name: "Concrete", Unit: "m3", WorkTypeID: workType.ID, AccountType: masterdomain.ProductAccountIn, Active: true, CreatedAt: now}
	require.NoError(t, md.Create(ctx, concrete))

	f := &reportFixture{project: project}
	insert := func(number string, date time.Time, status statementdomain.Status, prev, current, net string) {
		total := dec(prev).Add(dec(current))
		st := &statementdomain.Statement{
			ID: node.Generate(), CompanyID: company.ID, Number: number,
			ProjectID: project.ID, WorkTypeID: workType.ID, ContractorID: contractor.ID,
			ContractorType: statementdomain.ContractorTypeMain,
			StatementDate:  date, PeriodFrom: date.AddDate(0, 0, -30), PeriodTo: date,
			GrossValue: dec(current).Mul(dec("200")), NetPayable: dec(net),
			RetentionPercentage: dec("5"),
			Status:              status, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, repo.Insert(ctx, conn, st))
		line := &statementdomain.StatementLine{
			ID: node.Generate(), StatementID: st.ID, Sequence: 10, ProductID: concrete.ID,
			Description: "Concrete", Unit: "m3",
			ContractQty: dec("100"), PrevQty: dec(prev), CurrentQty: dec(current), TotalQty: total,
			ProgressPercent: total, UnitPrice: dec("200"),
			CurrentValue: dec(current).Mul(dec("200")), TotalValue: total.Mul(dec("200")),
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, repo.InsertLine(ctx, conn, line))
		st.Lines = []statementdomain.StatementLine{*line}
		f.statements = append(f.statements, st)
	}
	insert("P1-WT1-001", time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), statementdomain.StatusApproved, "0", "40", "7600")
	insert("P1-WT1-002", time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), statementdomain.StatusDraft, "40", "60", "250000")

	f.svc = NewService(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		Statements: statementReader{db: conn, repo: repo},
		MasterData: md,
	})
	return f
}

func TestAnalysisRows(t *testing.T) {
	f := newReportFixture(t)

	rows, err := f.svc.Analysis(context.Background(), domain.Filter{ProjectID: &f.project.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	latest := rows[0]
	assert.Equal(t, "P1-WT1-002", latest.Number)
	assert.Equal(t, "Tower", latest.ProjectName)
	assert.Equal(t, "Structure", latest.WorkTypeName)
	assert.Equal(t, "Acme Builders", latest.ContractorName)
	assert.Equal(t, "completed", latest.ProgressRange)
	assert.Equal(t, "large", latest.ValueRange)
	assert.True(t, latest.RemainingQty.IsZero())
	assert.Equal(t, "April 2024", latest.Month)
	assert.Equal(t, "Q2 2024", latest.Quarter)

	first := rows[1]
	assert.Equal(t, "26-50", first.ProgressRange)
	assert.Equal(t, "small", first.ValueRange)
	assert.Equal(t, "60", first.RemainingQty.String())
	assert.Equal(t, 30, first.WorkDurationDays)
}

func TestAnalysisFilters(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	status := "approved"
	rows, err := f.svc.Analysis(ctx, domain.Filter{Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P1-WT1-001", rows[0].Number)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.Analysis(ctx, domain.Filter{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestExportStatementWorkbook(t *testing.T) {
	f := newReportFixture(t)

	file, err := f.svc.ExportStatement(context.Background(), f.statements[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "p1-wt1-001-acme-builders.xlsx", file.Name)
	assert.Equal(t, domain.ContentTypeXLSX, file.ContentType)

	book, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{summarySheet, linesSheet}, book.GetSheetList())
	number, err := book.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "P1-WT1-001", number)
	item, err := book.GetCellValue(linesSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Concrete", item)
	current, err := book.GetCellValue(linesSheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "40", current)
}

func TestExportAnalysisWorkbook(t *testing.T) {
	f := newReportFixture(t)

	file, err := f.svc.ExportAnalysis(context.Background(), domain.Filter{})
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(analysisSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Statement", rows[0][0])
	assert.Equal(t, "P1-WT1-002", rows[1][0])
}

func TestRenderStatementPDF(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	file, err := f.svc.RenderStatementPDF(ctx, f.statements[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "p1-wt1-002-acme-builders.pdf", file.Name)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))

	_, err = f.svc.RenderStatementPDF(ctx, snowflake.ID(42))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
