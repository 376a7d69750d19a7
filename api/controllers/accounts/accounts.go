package accounts

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/moneypilot-backend/api/responses"
	"github.com/angelmondragon/moneypilot-backend/api/validators"
	accountsvc "github.com/angelmondragon/moneypilot-backend/internal/accounts"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type accountCreateRequest struct {
	Name           string  `json:"name" validate:"required,max=128"`
	AccountType    string  `json:"account_type" validate:"required,oneof=checking savings credit_card"`
	BankName       string  `json:"bank_name" validate:"required,max=128"`
	InitialBalance string  `json:"initial_balance,omitempty" validate:"omitempty,numeric"`
	Currency       string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	Nickname       *string `json:"nickname,omitempty" validate:"omitempty,max=128"`
	Description    *string `json:"description,omitempty" validate:"omitempty,max=1024"`
}

type accountUpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=128"`
	Nickname    *string `json:"nickname,omitempty" validate:"omitempty,max=128"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1024"`
}

type deleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// List serves GET /accounts.
func List(svc accountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accountsvc.NewAccountDTOs(rows))
	}
}

// Create serves POST /accounts.
func Create(svc accountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload accountCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance := decimal.Zero
		if raw := strings.TrimSpace(payload.InitialBalance); raw != "" {
			if balance, err = decimal.NewFromString(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid initial balance").
					WithDetails(map[string]string{"initial_balance": "must be numeric"}))
				return
			}
		}

		account, err := svc.Create(r.Context(), tenantID, accountsvc.CreateInput{
			Name:           payload.Name,
			AccountType:    payload.AccountType,
			BankName:       payload.BankName,
			InitialBalance: balance,
			Currency:       payload.Currency,
			Nickname:       payload.Nickname,
			Description:    payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, accountsvc.NewAccountDTO(*account))
	}
}

// Update serves PUT /accounts/{id}. Only the name, nickname and description
// are editable; balances move through transactions.
func Update(svc accountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload accountUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := svc.Update(r.Context(), tenantID, chi.URLParam(r, "id"), accountsvc.UpdateInput{
			Name:        payload.Name,
			Nickname:    payload.Nickname,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accountsvc.NewAccountDTO(*account))
	}
}

// Delete serves DELETE /accounts/{id}.
func Delete(svc accountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id := chi.URLParam(r, "id")
		if err := svc.Delete(r.Context(), tenantID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deleteResponse{ID: id, Deleted: true})
	}
}
