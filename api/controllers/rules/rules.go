package rules

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/moneypilot-backend/api/responses"
	"github.com/angelmondragon/moneypilot-backend/api/validators"
	rulesvc "github.com/angelmondragon/moneypilot-backend/internal/rules"
	"github.com/angelmondragon/moneypilot-backend/internal/transactions"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type ruleConditionRequest struct {
	Field string `json:"field" validate:"required,max=64"`
	Op    string `json:"op" validate:"required,oneof=regex contains gte lte"`
	Value string `json:"value" validate:"required,max=512"`
}

type ruleActionRequest struct {
	Type       string `json:"type" validate:"required,oneof=set_category rename_merchant add_tag"`
	CategoryID string `json:"category_id,omitempty" validate:"max=128"`
	To         string `json:"to,omitempty" validate:"max=256"`
	Tag        string `json:"tag,omitempty" validate:"max=64"`
}

type ruleCreateRequest struct {
	Name       string                 `json:"name" validate:"required,max=128"`
	Priority   *int                   `json:"priority,omitempty" validate:"omitempty,min=0,max=100000"`
	Enabled    *bool                  `json:"enabled,omitempty"`
	Conditions []ruleConditionRequest `json:"conditions" validate:"max=20,dive"`
	Actions    []ruleActionRequest    `json:"actions" validate:"required,min=1,max=10,dive"`
}

type ruleTestRequest struct {
	AccountID   string     `json:"account_id,omitempty" validate:"max=128"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	Amount      string     `json:"amount" validate:"required,numeric"`
	Currency    string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	Description string     `json:"description" validate:"max=1024"`
	Merchant    string     `json:"merchant,omitempty" validate:"max=256"`
}

type ruleTestResponse struct {
	Matched     bool                        `json:"matched"`
	Rule        *rulesvc.RuleDTO            `json:"rule,omitempty"`
	Transaction transactions.TransactionDTO `json:"transaction"`
}

// List serves GET /rules.
func List(svc rulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
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
		responses.WriteSuccess(w, rulesvc.NewRuleDTOs(rows))
	}
}

// Create serves POST /rules.
func Create(svc rulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ruleCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.Create(r.Context(), tenantID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rulesvc.NewRuleDTO(*rule))
	}
}

// Test serves POST /rules/test. The sample is normalised the same way a CSV
// import would normalise it before the tenant's rules run.
func Test(svc rulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ruleTestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sample, err := payload.toTransaction()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Test(r.Context(), tenantID, sample)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := ruleTestResponse{
			Matched:     result.Matched,
			Transaction: transactions.NewTransactionDTO(result.Transaction),
		}
		if result.Rule != nil {
			dto := rulesvc.NewRuleDTO(*result.Rule)
			resp.Rule = &dto
		}
		responses.WriteSuccess(w, resp)
	}
}

func (p ruleCreateRequest) toInput() rulesvc.CreateInput {
	input := rulesvc.CreateInput{
		Name:       p.Name,
		Priority:   p.Priority,
		Enabled:    p.Enabled,
		Conditions: make([]models.RuleCondition, 0, len(p.Conditions)),
		Actions:    make([]models.RuleAction, 0, len(p.Actions)),
	}
	for _, c := range p.Conditions {
		input.Conditions = append(input.Conditions, models.RuleCondition{
			Field: strings.TrimSpace(c.Field),
			Op:    enums.RuleOp(c.Op),
			Value: c.Value,
		})
	}
	for _, a := range p.Actions {
		input.Actions = append(input.Actions, models.RuleAction{
			Type:       enums.RuleActionType(a.Type),
			CategoryID: strings.TrimSpace(a.CategoryID),
			To:         strings.TrimSpace(a.To),
			Tag:        strings.TrimSpace(a.Tag),
		})
	}
	return input
}

func (p ruleTestRequest) toTransaction() (models.Transaction, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(p.Amount))
	if err != nil {
		return models.Transaction{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount").
			WithDetails(map[string]string{"amount": "must be numeric"})
	}
	posted := time.Now().UTC()
	if p.PostedAt != nil {
		posted = p.PostedAt.UTC()
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = transactions.DefaultCurrency
	}

	txn := models.Transaction{
		AccountID: strings.TrimSpace(p.AccountID),
		PostedAt:  posted,
		Amount:    amount,
		Currency:  currency,
	}
	if desc := strings.TrimSpace(p.Description); desc != "" {
		txn.DescriptionRaw = &desc
		txn.Merchant = transactions.NormalizeMerchant(desc)
		if category, confidence := transactions.HeuristicCategory(desc); category != nil {
			txn.CategoryID = category
			txn.CategoryConfidence = confidence
		}
	}
	if merchant := strings.TrimSpace(p.Merchant); merchant != "" {
		txn.Merchant = &merchant
	}
	return txn, nil
}
