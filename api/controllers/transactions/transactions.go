package transactions

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/moneypilot-backend/api/responses"
	"github.com/angelmondragon/moneypilot-backend/api/validators"
	txnsvc "github.com/angelmondragon/moneypilot-backend/internal/transactions"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type transactionCreateRequest struct {
	AccountID       string     `json:"account_id" validate:"required,max=64"`
	PostedAt        *time.Time `json:"posted_at,omitempty"`
	Amount          string     `json:"amount" validate:"required,numeric"`
	TransactionType string     `json:"transaction_type" validate:"required,oneof=debit credit"`
	Description     string     `json:"description" validate:"required,max=1024"`
	CategoryID      string     `json:"category_id,omitempty" validate:"max=128"`
}

// List serves GET /transactions?account_id=&category=&limit=.
func List(svc txnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", txnsvc.DefaultListLimit, 1, txnsvc.MaxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		rows, err := svc.List(r.Context(), tenantID, txnsvc.ListInput{
			AccountID:  validators.SanitizeString(query.Get("account_id"), 64),
			CategoryID: validators.SanitizeString(query.Get("category"), 128),
			Limit:      limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txnsvc.NewTransactionDTOs(rows))
	}
}

// Create serves POST /transactions for manually entered lines.
func Create(svc txnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transactionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount").
				WithDetails(map[string]string{"amount": "must be numeric"}))
			return
		}
		input := txnsvc.CreateInput{
			AccountID:   payload.AccountID,
			Amount:      amount,
			Type:        payload.TransactionType,
			Description: payload.Description,
			CategoryID:  payload.CategoryID,
		}
		if payload.PostedAt != nil {
			input.PostedAt = *payload.PostedAt
		}

		txn, err := svc.Create(r.Context(), tenantID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txnsvc.NewTransactionDTO(*txn))
	}
}
