package accounts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/api/middleware"
	accountsvc "github.com/angelmondragon/moneypilot-backend/internal/accounts"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type stubService struct {
	created   accountsvc.CreateInput
	updatedID string
	updated   accountsvc.UpdateInput
	deleteErr error
}

func (s *stubService) List(context.Context, string) ([]models.Account, error) {
	return []models.Account{}, nil
}

func (s *stubService) Get(context.Context, string, string) (*models.Account, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
}

func (s *stubService) Create(_ context.Context, tenantID string, input accountsvc.CreateInput) (*models.Account, error) {
	s.created = input
	return &models.Account{ID: uuid.New(), TenantID: tenantID, Name: input.Name, AccountType: enums.AccountType(input.AccountType), Balance: input.InitialBalance}, nil
}

func (s *stubService) Update(_ context.Context, tenantID, accountID string, input accountsvc.UpdateInput) (*models.Account, error) {
	s.updatedID = accountID
	s.updated = input
	return &models.Account{ID: uuid.MustParse(accountID), TenantID: tenantID, Name: *input.Name}, nil
}

func (s *stubService) Delete(context.Context, string, string) error {
	return s.deleteErr
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newRouter(svc accountsvc.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithTenantID(req.Context(), "T1")))
		})
	})
	r.Get("/accounts", List(svc, testLogger()))
	r.Post("/accounts", Create(svc, testLogger()))
	r.Put("/accounts/{id}", Update(svc, testLogger()))
	r.Delete("/accounts/{id}", Delete(svc, testLogger()))
	return r
}

func TestCreateParsesInitialBalance(t *testing.T) {
	svc := &stubService{}
	body := `{"name":"Everyday","account_type":"checking","bank_name":"First Bank","initial_balance":"1200.50"}`
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(body)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.created.InitialBalance.Equal(decimal.RequireFromString("1200.50")) {
		t.Fatalf("unexpected balance %s", svc.created.InitialBalance)
	}
}

func TestCreateRejectsUnknownAccountType(t *testing.T) {
	body := `{"name":"Everyday","account_type":"brokerage","bank_name":"First Bank"}`
	resp := httptest.NewRecorder()
	newRouter(&stubService{}).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(body)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdatePassesPathID(t *testing.T) {
	svc := &stubService{}
	id := uuid.NewString()
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/accounts/"+id, strings.NewReader(`{"name":"Bills"}`)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.updatedID != id || svc.updated.Name == nil || *svc.updated.Name != "Bills" {
		t.Fatalf("unexpected update %q %+v", svc.updatedID, svc.updated)
	}
}

func TestDeleteWithTransactionsIsConflict(t *testing.T) {
	svc := &stubService{deleteErr: pkgerrors.New(pkgerrors.CodeConflict, "account has transactions")}
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/accounts/"+uuid.NewString(), nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Message != "account has transactions" {
		t.Fatalf("unexpected message %q", payload.Error.Message)
	}
}

func TestDeleteSucceeds(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(&stubService{}).ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/accounts/"+uuid.NewString(), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
