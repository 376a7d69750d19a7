package rollups

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/dbtest"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

func TestRepositoryUpsertManyCategories(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))

	build := func(spent string) []models.CategoryRollup {
		rows := make([]models.CategoryRollup, 0, 1500)
		for i := 0; i < 1500; i++ {
			rows = append(rows, models.CategoryRollup{
				TenantID:   "T1",
				Month:      "2025-03",
				CategoryID: fmt.Sprintf("cat-%04d", i),
				Spent:      decimal.RequireFromString(spent),
				Income:     decimal.Zero,
				TxnCount:   1,
			})
		}
		return rows
	}

	require.NoError(t, repo.Upsert(ctx, build("10.00")))
	require.NoError(t, repo.Upsert(ctx, build("12.50")))

	rows, err := repo.ListMonths(ctx, "T1", "2025-03")
	require.NoError(t, err)
	require.Len(t, rows, 1500)
	assert.Equal(t, "cat-0000", rows[0].CategoryID)
	assert.True(t, rows[1499].Spent.Equal(decimal.RequireFromString("12.50")), "spent %s", rows[1499].Spent)
}
