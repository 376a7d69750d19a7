package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/moneypilot-backend/api/controllers"
	"github.com/angelmondragon/moneypilot-backend/internal/accounts"
	"github.com/angelmondragon/moneypilot-backend/internal/categories"
	"github.com/angelmondragon/moneypilot-backend/internal/cron"
	"github.com/angelmondragon/moneypilot-backend/internal/dashboard"
	"github.com/angelmondragon/moneypilot-backend/internal/rollups"
	"github.com/angelmondragon/moneypilot-backend/internal/rules"
	"github.com/angelmondragon/moneypilot-backend/internal/subscriptions"
	"github.com/angelmondragon/moneypilot-backend/internal/transactions"
	pkgAuth "github.com/angelmondragon/moneypilot-backend/pkg/auth"
	"github.com/angelmondragon/moneypilot-backend/pkg/config"
	"github.com/angelmondragon/moneypilot-backend/pkg/db"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/dbtest"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSubscriptions struct {
	detected []string
	limit    int
}

func (s *stubSubscriptions) DetectForTenant(_ context.Context, tenantID string) (*subscriptions.Report, error) {
	s.detected = append(s.detected, tenantID)
	return &subscriptions.Report{TenantID: tenantID, DebitsScanned: 3}, nil
}

func (s *stubSubscriptions) ListCandidates(_ context.Context, tenantID string, limit int) ([]models.SubscriptionCandidate, error) {
	s.limit = limit
	return []models.SubscriptionCandidate{{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		MerchantNormalized: "NETFLIX",
		Cadence:            enums.CadenceMonthly,
		Confidence:         1.0 / 3.0,
		NextExpectedAt:     time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
	}}, nil
}

type stubLocker struct{ held bool }

func (s stubLocker) Run(ctx context.Context, _ string, fn func(context.Context) error) error {
	if s.held {
		return cron.ErrLockHeld
	}
	return fn(ctx)
}

type stubImports struct{ params transactions.ImportParams }

func (s *stubImports) Import(_ context.Context, params transactions.ImportParams) (*transactions.ImportResult, error) {
	s.params = params
	body, _ := io.ReadAll(params.Body)
	rows := strings.Count(strings.TrimSpace(string(body)), "\n")
	return &transactions.ImportResult{Rows: rows, Inserted: rows}, nil
}

type stubRules struct{ created *rules.CreateInput }

func (s *stubRules) List(context.Context, string) ([]models.Rule, error) { return nil, nil }

func (s *stubRules) Create(_ context.Context, tenantID string, input rules.CreateInput) (*models.Rule, error) {
	s.created = &input
	return &models.Rule{ID: uuid.New(), TenantID: tenantID, Name: input.Name, Priority: rules.DefaultPriority, Enabled: true}, nil
}

func (s *stubRules) Test(_ context.Context, tenantID string, sample models.Transaction) (*rules.TestResult, error) {
	sample.TenantID = tenantID
	return &rules.TestResult{Transaction: sample}, nil
}

type stubRollups struct{}

func (stubRollups) Recompute(_ context.Context, tenantID string) (*rollups.RecomputeResult, error) {
	return &rollups.RecomputeResult{TenantID: tenantID}, nil
}

func (stubRollups) Insights(_ context.Context, tenantID, month string) (*rollups.Insights, error) {
	if _, err := rollups.ParseMonth(month); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "month must be YYYY-MM")
	}
	return &rollups.Insights{TenantID: tenantID, Month: month}, nil
}

func (stubRollups) List(context.Context, string) ([]models.CategoryRollup, error) { return nil, nil }

type fixture struct {
	handler http.Handler
	subs    *stubSubscriptions
	imports *stubImports
	rules   *stubRules
	cfg     *config.Config
}

func newFixture(t *testing.T, locker stubLocker, checks map[string]controllers.Pinger, opts ...func(*RouterParams)) fixture {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{Env: "test"},
		JWT:       config.JWTConfig{Secret: "secret", Issuer: "moneypilot", ExpirationMinutes: 10},
		Detector:  config.DetectorConfig{ListLimit: 50},
		RateLimit: config.RateLimitConfig{Window: time.Minute},
	}
	f := fixture{
		subs:    &stubSubscriptions{},
		imports: &stubImports{},
		rules:   &stubRules{},
		cfg:     cfg,
	}
	params := RouterParams{
		Config:        cfg,
		Logger:        logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		ReadyChecks:   checks,
		Gatherer:      prometheus.NewRegistry(),
		Subscriptions: f.subs,
		TenantLocker:  locker,
		Imports:       f.imports,
		Rules:         f.rules,
		Rollups:       stubRollups{},
	}
	for _, opt := range opts {
		opt(&params)
	}
	f.handler = NewRouter(params)
	return f
}

func (f fixture) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{TenantID: "T1"})
		if err != nil {
			t.Fatalf("mint token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, stubLocker{}, map[string]controllers.Pinger{"db": stubPinger{}, "gcs": nil})
	if resp := f.do(t, http.MethodGet, "/health/live", "", false); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	resp := f.do(t, http.MethodGet, "/health/ready", "", false)
	if resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
	var ready struct {
		Checks map[string]string `json:"checks"`
	}
	decodeData(t, resp, &ready)
	if ready.Checks["db"] != "ok" || ready.Checks["gcs"] != "disabled" {
		t.Fatalf("unexpected checks %v", ready.Checks)
	}
}

func TestHealthReadyFailsOnDependency(t *testing.T) {
	f := newFixture(t, stubLocker{}, map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("refused")}})
	if resp := f.do(t, http.MethodGet, "/health/ready", "", false); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil)
	if resp := f.do(t, http.MethodGet, "/metrics", "", false); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil)
	if resp := f.do(t, http.MethodGet, "/api/v1/subscriptions", "", false); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestListSubscriptions(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil)
	resp := f.do(t, http.MethodGet, "/api/v1/subscriptions?limit=10", "", true)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var rows []subscriptions.CandidateDTO
	decodeData(t, resp, &rows)
	if len(rows) != 1 || rows[0].MerchantNormalized != "NETFLIX" || rows[0].NextExpectedAt != "2025-04-03" || rows[0].TenantID != "T1" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if f.subs.limit != 10 {
		t.Fatalf("expected limit 10 passed through, got %d", f.subs.limit)
	}

	if resp := f.do(t, http.MethodGet, "/api/v1/subscriptions?limit=500", "", true); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit above configured max, got %d", resp.Code)
	}
}

func TestDetectRunsUnderLock(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil)
	resp := f.do(t, http.MethodPost, "/api/v1/subscriptions/detect", "", true)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var report subscriptions.ReportDTO
	decodeData(t, resp, &report)
	if report.TenantID != "T1" || report.DebitsScanned != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(f.subs.detected) != 1 {
		t.Fatalf("expected one detection run, got %d", len(f.subs.detected))
	}
}

func TestDetectConflictWhenLockHeld(t *testing.T) {
	f := newFixture(t, stubLocker{held: true}, nil)
	resp := f.do(t, http.MethodPost, "/api/v1/subscriptions/detect", "", true)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if len(f.subs.detected) != 0 {
		t.Fatal("detector must not run while the lock is held")
	}
}

func TestImportCSV(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil)
	body := "Date,Amount,Description\n2025-01-01,-15.99,NETFLIX.COM\n"
	resp := f.do(t, http.MethodPost, "/api/v1/imports/csv?account_id=acc-1&currency=usd", body, true)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if f.imports.params.TenantID != "T1" || f.imports.params.AccountID != "acc-1" || f.imports.params.Currency != "usd" {
		t.Fatalf("unexpected import params %+v", f.imports.params)
	}

	if resp := f.do(t, http.MethodPost, "/api/v1/imports/csv", body, true); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without account_id, got %d", resp.Code)
	}
}

func TestCreateRuleValidatesPayload(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil)
	bad := `{"name":"x","actions":[{"type":"explode"}]}`
	resp := f.do(t, http.MethodPost, "/api/v1/rules", bad, true)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "actions[0].type") {
		t.Fatalf("expected nested field path in details, got %s", resp.Body.String())
	}

	good := `{"name":"streaming","priority":10,"conditions":[{"field":"merchant","op":"contains","value":"netflix"}],"actions":[{"type":"set_category","category_id":"subscriptions"}]}`
	resp = f.do(t, http.MethodPost, "/api/v1/rules", good, true)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if f.rules.created == nil || *f.rules.created.Priority != 10 || f.rules.created.Conditions[0].Op != enums.RuleOpContains {
		t.Fatalf("unexpected create input %+v", f.rules.created)
	}
}

func TestRuleTestNormalisesSample(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil)
	resp := f.do(t, http.MethodPost, "/api/v1/rules/test", `{"amount":"-15.99","description":"Netflix.com 123"}`, true)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Matched     bool                        `json:"matched"`
		Transaction transactions.TransactionDTO `json:"transaction"`
	}
	decodeData(t, resp, &out)
	if out.Transaction.Merchant == nil || *out.Transaction.Merchant != "NETFLIXCOM 123" {
		t.Fatalf("expected normalised merchant, got %v", out.Transaction.Merchant)
	}
	if out.Transaction.Currency != transactions.DefaultCurrency {
		t.Fatalf("expected default currency, got %s", out.Transaction.Currency)
	}
}

func TestInsightsMonth(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil)
	if resp := f.do(t, http.MethodGet, "/api/v1/insights/2025-03", "", true); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/insights/march", "", true); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestExportsDisabledWithoutBucket(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil)
	if resp := f.do(t, http.MethodPost, "/api/v1/exports/full", "", true); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func withLedger(t *testing.T) func(*RouterParams) {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	client := db.NewFromConn(conn)
	accountRepo := accounts.NewRepository(conn)
	txnRepo := transactions.NewRepository(conn)

	accountSvc, err := accounts.NewService(client, accountRepo)
	if err != nil {
		t.Fatalf("account service: %v", err)
	}
	txnSvc, err := transactions.NewService(transactions.ServiceParams{Tx: client, Repo: txnRepo, Accounts: accountRepo})
	if err != nil {
		t.Fatalf("transaction service: %v", err)
	}
	categorySvc, err := categories.NewService(categories.NewRepository(conn))
	if err != nil {
		t.Fatalf("category service: %v", err)
	}
	dashboardSvc, err := dashboard.NewService(accountSvc, txnRepo, nil)
	if err != nil {
		t.Fatalf("dashboard service: %v", err)
	}
	return func(p *RouterParams) {
		p.Accounts = accountSvc
		p.Transactions = txnSvc
		p.Categories = categorySvc
		p.Dashboard = dashboardSvc
	}
}

func TestAccountLedgerFlow(t *testing.T) {
	f := newFixture(t, stubLocker{}, nil, withLedger(t))

	resp := f.do(t, http.MethodPost, "/api/v1/accounts", `{"name":"Everyday","account_type":"checking","bank_name":"First Bank","initial_balance":"100"}`, true)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create account: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var account accounts.AccountDTO
	decodeData(t, resp, &account)

	posted := time.Now().UTC().Format(time.RFC3339)
	body := `{"account_id":"` + account.ID.String() + `","amount":"15.99","transaction_type":"debit","description":"Netflix","posted_at":"` + posted + `"}`
	if resp := f.do(t, http.MethodPost, "/api/v1/transactions", body, true); resp.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	missing := `{"account_id":"` + uuid.NewString() + `","amount":"1","transaction_type":"credit","description":"x"}`
	if resp := f.do(t, http.MethodPost, "/api/v1/transactions", missing, true); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown account: expected 404 got %d", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/transactions?account_id="+account.ID.String()+"&category=subscriptions", "", true)
	if resp.Code != http.StatusOK {
		t.Fatalf("list transactions: expected 200 got %d", resp.Code)
	}
	var rows []transactions.TransactionDTO
	decodeData(t, resp, &rows)
	if len(rows) != 1 || rows[0].Amount.String() != "-15.99" {
		t.Fatalf("unexpected transactions %+v", rows)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/dashboard", "", true)
	if resp.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200 got %d", resp.Code)
	}
	var summary dashboard.Summary
	decodeData(t, resp, &summary)
	if summary.TotalBalance.StringFixed(2) != "84.01" || summary.MonthlySpending.StringFixed(2) != "15.99" {
		t.Fatalf("unexpected dashboard %+v", summary)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/categories", "", true)
	var cats []categories.CategoryDTO
	decodeData(t, resp, &cats)
	if len(cats) != len(categories.Defaults) {
		t.Fatalf("expected default catalog, got %d", len(cats))
	}

	if resp := f.do(t, http.MethodPut, "/api/v1/accounts/"+account.ID.String(), `{"nickname":"main"}`, true); resp.Code != http.StatusOK {
		t.Fatalf("update account: expected 200 got %d", resp.Code)
	}
	if resp := f.do(t, http.MethodDelete, "/api/v1/accounts/"+account.ID.String(), "", true); resp.Code != http.StatusConflict {
		t.Fatalf("delete busy account: expected 409 got %d", resp.Code)
	}
}
