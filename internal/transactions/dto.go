package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// TransactionDTO is the client payload for a transaction.
type TransactionDTO struct {
	ID                 uuid.UUID       `json:"id"`
	TenantID           string          `json:"tenant_id"`
	AccountID          string          `json:"account_id"`
	PostedAt           time.Time       `json:"posted_at"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Merchant           *string         `json:"merchant,omitempty"`
	DescriptionRaw     *string         `json:"description_raw,omitempty"`
	CategoryID         *string         `json:"category_id,omitempty"`
	CategoryConfidence float64         `json:"category_confidence"`
	Tags               []string        `json:"tags"`
	IsPending          bool            `json:"is_pending"`
	DedupeHash         string          `json:"dedupe_hash,omitempty"`
	CreatedAt          *time.Time      `json:"created_at,omitempty"`
}

// NewTransactionDTO maps a transaction.
func NewTransactionDTO(t models.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:                 t.ID,
		TenantID:           t.TenantID,
		AccountID:          t.AccountID,
		PostedAt:           t.PostedAt.UTC(),
		Amount:             t.Amount,
		Currency:           t.Currency,
		Merchant:           t.Merchant,
		DescriptionRaw:     t.DescriptionRaw,
		CategoryID:         t.CategoryID,
		CategoryConfidence: t.CategoryConfidence,
		Tags:               append([]string{}, t.Tags...),
		IsPending:          t.IsPending,
		DedupeHash:         t.DedupeHash,
	}
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt.UTC()
		dto.CreatedAt = &created
	}
	return dto
}

// NewTransactionDTOs maps a slice, never returning nil.
func NewTransactionDTOs(rows []models.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewTransactionDTO(row))
	}
	return out
}
