//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sitebill/internal/clock"
	"github.com/smallbiznis/sitebill/internal/config"
	"github.com/smallbiznis/sitebill/internal/logger"
	"github.com/smallbiznis/sitebill/internal/migration"
	"github.com/smallbiznis/sitebill/internal/observability"
	"github.com/smallbiznis/sitebill/internal/server"
	"github.com/smallbiznis/sitebill/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type testEnv struct {
	app     *fx.App
	db      *gorm.DB
	baseURL string
	httpSrv *httptest.Server
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	setDefaultEnv()

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func TestE2E_HealthCheck(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2E_StatementLifecycle(t *testing.T) {
	client := &http.Client{Timeout: 15 * time.Second}
	headers := map[string]string{"X-Actor": "site.engineer"}
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	company := findByField(t, client, env.baseURL+"/api/companies", "code", "MAIN")
	companyID := company["id"].(string)

	accounts := listData(t, client, env.baseURL+"/api/accounts?company_id="+companyID)
	payable := fieldOf(t, accounts, "code", "2010")["id"].(string)
	expense := fieldOf(t, accounts, "code", "5100")["id"].(string)
	journal := findByField(t, client, env.baseURL+"/api/journals?company_id="+companyID, "code", "BNK")

	project := create(t, client, "/api/projects", map[string]any{
		"company_id": companyID,
		"code":       "PRJ-" + suffix,
		"name":       "Harbour Tower",
	})
	workType := create(t, client, "/api/work-types", map[string]any{
		"code": "WT-" + suffix,
		"name": "Concrete",
	})
	contractor := create(t, client, "/api/contractors", map[string]any{
		"company_id":         companyID,
		"name":               "Acme Builders " + suffix,
		"is_company":         true,
		"payable_account_id": payable,
	})
	product := create(t, client, "/api/products", map[string]any{
		"code":          "P-" + suffix,
		"name":          "Slab pour",
		"unit":          "m3",
		"work_type_id":  workType["id"],
		"account_type":  "in",
		"in_account_id": expense,
	})
	method := create(t, client, "/api/payment-methods", map[string]any{
		"code":         "TRF-" + suffix,
		"name":         "Bank transfer",
		"journal_id":   journal["id"],
		"payment_type": "outbound",
	})

	resp, body := doJSON(t, client, http.MethodPut, env.baseURL+"/api/quantities/contract", map[string]any{
		"project_id":    project["id"],
		"work_type_id":  workType["id"],
		"contractor_id": contractor["id"],
		"product_id":    product["id"],
		"contract_qty":  "100",
	}, nil)
	expectStatus(t, resp, body, http.StatusOK)

	today := time.Now().UTC().Format("2006-01-02") + "T00:00:00Z"
	resp, body = doJSON(t, client, http.MethodPost, env.baseURL+"/api/statements", map[string]any{
		"project_id":      project["id"],
		"work_type_id":    workType["id"],
		"contractor_id":   contractor["id"],
		"contractor_type": "sub",
		"statement_date":  today,
		"period_from":     today,
		"period_to":       today,
		"lines": []map[string]any{
			{"product_id": product["id"], "current_qty": "10", "unit_price": "1000"},
		},
	}, headers)
	expectStatus(t, resp, body, http.StatusCreated)
	statement := decodeData(t, body)
	statementID := mustParseID(t, statement["id"].(string))
	if statement["created_by"] != "site.engineer" {
		t.Fatalf("expected created_by site.engineer, got %v", statement["created_by"])
	}
	if statement["status"] != "draft" {
		t.Fatalf("expected draft status, got %v", statement["status"])
	}

	statementURL := env.baseURL + "/api/statements/" + statementID.String()
	for _, step := range []struct{ path, status string }{
		{"/confirm", "confirmed"},
		{"/approve", "approved"},
	} {
		resp, body = doJSON(t, client, http.MethodPost, statementURL+step.path, nil, headers)
		expectStatus(t, resp, body, http.StatusOK)
		statement = decodeData(t, body)
		if statement["status"] != step.status {
			t.Fatalf("expected status %s, got %v", step.status, statement["status"])
		}
	}

	netPayable := mustDecimal(t, statement["net_payable"])
	if !netPayable.IsPositive() {
		t.Fatalf("expected positive net payable, got %s", netPayable)
	}

	entryID, ok := statement["ledger_entry_id"].(string)
	if !ok || entryID == "" {
		t.Fatalf("expected ledger entry on approved statement")
	}
	resp, body = doJSON(t, client, http.MethodGet, env.baseURL+"/api/ledger-entries/"+entryID, nil, nil)
	expectStatus(t, resp, body, http.StatusOK)
	assertBalanced(t, decodeData(t, body))

	if got := countRows(t, env.db, "quantity_ledger_entries", "contractor_id = ?", mustParseID(t, contractor["id"].(string))); got != 1 {
		t.Fatalf("expected one quantity ledger row, got %d", got)
	}

	resp, body = doJSON(t, client, http.MethodPost, statementURL+"/pay", map[string]any{
		"payment_method_id": method["id"],
		"payment_notes":     "paid in full",
	}, headers)
	expectStatus(t, resp, body, http.StatusOK)
	statement = decodeData(t, body)
	if statement["status"] != "paid" {
		t.Fatalf("expected paid status, got %v", statement["status"])
	}

	paymentID, ok := statement["payment_id"].(string)
	if !ok || paymentID == "" {
		t.Fatalf("expected payment on paid statement")
	}
	resp, body = doJSON(t, client, http.MethodGet, env.baseURL+"/api/payments/"+paymentID, nil, nil)
	expectStatus(t, resp, body, http.StatusOK)
	payment := decodeData(t, body)
	if payment["direction"] != "outbound" {
		t.Fatalf("expected outbound payment for a sub contractor, got %v", payment["direction"])
	}
	if amount := mustDecimal(t, payment["amount"]); !amount.Equal(netPayable) {
		t.Fatalf("expected payment amount %s, got %s", netPayable, amount)
	}

	if got := countRows(t, env.db, "audit_logs", "target_id = ? AND action LIKE ?", statementID.String(), "statement.%"); got < 4 {
		t.Fatalf("expected at least 4 statement audit logs, got %d", got)
	}

	// Paid statements are final.
	resp, body = doJSON(t, client, http.MethodDelete, statementURL, nil, headers)
	expectStatus(t, resp, body, http.StatusBadRequest)
}

func TestE2E_ApproveWithoutConfirmIsRejected(t *testing.T) {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, body := doJSON(t, client, http.MethodPost, env.baseURL+"/api/statements/"+snowflake.ID(1).String()+"/approve", nil, nil)
	expectStatus(t, resp, body, http.StatusNotFound)
}

func startEnv() (*testEnv, error) {
	var (
		srv    *server.Server
		dbConn *gorm.DB
	)

	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(1) }),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		fx.Populate(&srv, &dbConn),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return nil, err
	}

	httpSrv := httptest.NewServer(srv.Engine())
	return &testEnv{
		app:     app,
		db:      dbConn,
		baseURL: httpSrv.URL,
		httpSrv: httpSrv,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		_ = e.app.Stop(context.Background())
	}
}

func setDefaultEnv() {
	setEnvIfEmpty("ENVIRONMENT", "test")
	setEnvIfEmpty("LOG_LEVEL", "error")
	setEnvIfEmpty("DATABASE_TYPE", "postgres")
	setEnvIfEmpty("SCHEDULER_ENABLED", "false")
	setEnvIfEmpty("HTTP_ADDR", "127.0.0.1:0")
}

func setEnvIfEmpty(key, value string) {
	if strings.TrimSpace(os.Getenv(key)) != "" {
		return
	}
	_ = os.Setenv(key, value)
}

func create(t *testing.T, client *http.Client, path string, payload map[string]any) map[string]any {
	t.Helper()
	resp, body := doJSON(t, client, http.MethodPost, env.baseURL+path, payload, nil)
	expectStatus(t, resp, body, http.StatusCreated)
	return decodeData(t, body)
}

func listData(t *testing.T, client *http.Client, reqURL string) []map[string]any {
	t.Helper()
	resp, body := doJSON(t, client, http.MethodGet, reqURL, nil, nil)
	expectStatus(t, resp, body, http.StatusOK)

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return envelope.Data
}

func findByField(t *testing.T, client *http.Client, reqURL, field, value string) map[string]any {
	t.Helper()
	return fieldOf(t, listData(t, client, reqURL), field, value)
}

func fieldOf(t *testing.T, items []map[string]any, field, value string) map[string]any {
	t.Helper()
	for _, item := range items {
		if item[field] == value {
			return item
		}
	}
	t.Fatalf("no item with %s=%s", field, value)
	return nil
}

func decodeData(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func assertBalanced(t *testing.T, entry map[string]any) {
	t.Helper()
	lines, _ := entry["lines"].([]any)
	if len(lines) < 2 {
		t.Fatalf("expected at least two ledger lines, got %d", len(lines))
	}
	debit, credit := decimal.Zero, decimal.Zero
	for _, raw := range lines {
		line := raw.(map[string]any)
		debit = debit.Add(mustDecimal(t, line["debit"]))
		credit = credit.Add(mustDecimal(t, line["credit"]))
	}
	if !debit.Equal(credit) {
		t.Fatalf("ledger entry unbalanced: debit %s credit %s", debit, credit)
	}
}

func mustDecimal(t *testing.T, value any) decimal.Decimal {
	t.Helper()
	raw, ok := value.(string)
	if !ok {
		t.Fatalf("expected decimal string, got %T", value)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", raw, err)
	}
	return d
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(body))
	}
}

func countRows(t *testing.T, dbConn *gorm.DB, table string, where string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := dbConn.Table(table).Where(where, args...).Count(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func mustParseID(t *testing.T, value string) snowflake.ID {
	t.Helper()
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		t.Fatalf("invalid snowflake id: %s", value)
	}
	return parsed
}

func doJSON(t *testing.T, client *http.Client, method, reqURL string, payload any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode json: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, reqURL, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}
