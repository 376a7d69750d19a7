package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
)

// AccountDTO is the client payload for an account.
type AccountDTO struct {
	ID          uuid.UUID         `json:"id"`
	TenantID    string            `json:"tenant_id"`
	Name        string            `json:"name"`
	AccountType enums.AccountType `json:"account_type"`
	BankName    string            `json:"bank_name"`
	Balance     decimal.Decimal   `json:"balance"`
	Currency    string            `json:"currency"`
	Nickname    *string           `json:"nickname,omitempty"`
	Description *string           `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewAccountDTO maps a stored account.
func NewAccountDTO(a models.Account) AccountDTO {
	return AccountDTO{
		ID:          a.ID,
		TenantID:    a.TenantID,
		Name:        a.Name,
		AccountType: a.AccountType,
		BankName:    a.BankName,
		Balance:     a.Balance,
		Currency:    a.Currency,
		Nickname:    a.Nickname,
		Description: a.Description,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

// NewAccountDTOs maps a slice, never returning nil.
func NewAccountDTOs(rows []models.Account) []AccountDTO {
	out := make([]AccountDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewAccountDTO(row))
	}
	return out
}
