package rollups

import (
	"time"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// MirrorRow is the BigQuery shape of a rollup.
type MirrorRow struct {
	TenantID   string    `bigquery:"tenant_id"`
	Month      string    `bigquery:"month"`
	CategoryID string    `bigquery:"category_id"`
	Spent      float64   `bigquery:"spent"`
	Income     float64   `bigquery:"income"`
	TxnCount   int64     `bigquery:"txn_count"`
	UpdatedAt  time.Time `bigquery:"updated_at"`
}

func mirrorRows(rows []models.CategoryRollup) []any {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, &MirrorRow{
			TenantID:   row.TenantID,
			Month:      row.Month,
			CategoryID: row.CategoryID,
			Spent:      row.Spent.InexactFloat64(),
			Income:     row.Income.InexactFloat64(),
			TxnCount:   int64(row.TxnCount),
			UpdatedAt:  row.UpdatedAt.UTC(),
		})
	}
	return out
}
