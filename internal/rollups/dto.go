package rollups

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// RollupDTO is the client payload for a category rollup.
type RollupDTO struct {
	Month      string          `json:"month"`
	CategoryID string          `json:"category_id"`
	Spent      decimal.Decimal `json:"spent"`
	Income     decimal.Decimal `json:"income"`
	TxnCount   int             `json:"txn_count"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewRollupDTOs maps stored rollups, never returning nil.
func NewRollupDTOs(rows []models.CategoryRollup) []RollupDTO {
	out := make([]RollupDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, RollupDTO{
			Month:      row.Month,
			CategoryID: row.CategoryID,
			Spent:      row.Spent,
			Income:     row.Income,
			TxnCount:   row.TxnCount,
			UpdatedAt:  row.UpdatedAt.UTC(),
		})
	}
	return out
}
