package transactions

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/moneypilot-backend/api/middleware"
	txnsvc "github.com/angelmondragon/moneypilot-backend/internal/transactions"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type stubService struct {
	listed    txnsvc.ListInput
	created   txnsvc.CreateInput
	createErr error
}

func (s *stubService) List(_ context.Context, _ string, input txnsvc.ListInput) ([]models.Transaction, error) {
	s.listed = input
	return []models.Transaction{}, nil
}

func (s *stubService) Create(_ context.Context, tenantID string, input txnsvc.CreateInput) (*models.Transaction, error) {
	s.created = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Transaction{ID: uuid.New(), TenantID: tenantID, AccountID: input.AccountID, Amount: input.Amount.Neg()}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withTenant(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithTenantID(req.Context(), "T1"))
}

func TestListForwardsFilters(t *testing.T) {
	svc := &stubService{}
	resp := httptest.NewRecorder()
	req := withTenant(httptest.NewRequest(http.MethodGet, "/transactions?account_id=abc&category=+coffee+", nil))
	List(svc, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	want := txnsvc.ListInput{AccountID: "abc", CategoryID: "coffee", Limit: txnsvc.DefaultListLimit}
	if svc.listed != want {
		t.Fatalf("expected %+v got %+v", want, svc.listed)
	}
}

func TestListRejectsOversizedLimit(t *testing.T) {
	resp := httptest.NewRecorder()
	req := withTenant(httptest.NewRequest(http.MethodGet, "/transactions?limit=100000", nil))
	List(&stubService{}, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateDecodesPayload(t *testing.T) {
	svc := &stubService{}
	body := `{"account_id":"` + uuid.NewString() + `","amount":"15.99","transaction_type":"debit","description":"Netflix","posted_at":"2025-03-01T00:00:00Z"}`
	resp := httptest.NewRecorder()
	Create(svc, testLogger()).ServeHTTP(resp, withTenant(httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created.Amount.String() != "15.99" || svc.created.Type != "debit" || svc.created.PostedAt.IsZero() {
		t.Fatalf("unexpected input %+v", svc.created)
	}
}

func TestCreateUnknownAccountIsNotFound(t *testing.T) {
	svc := &stubService{createErr: pkgerrors.New(pkgerrors.CodeNotFound, "account not found")}
	body := `{"account_id":"nope","amount":"1","transaction_type":"credit","description":"Refund"}`
	resp := httptest.NewRecorder()
	Create(svc, testLogger()).ServeHTTP(resp, withTenant(httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	body := `{"account_id":"a","amount":"1","transaction_type":"refund","description":"x"}`
	resp := httptest.NewRecorder()
	Create(&stubService{}, testLogger()).ServeHTTP(resp, withTenant(httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
