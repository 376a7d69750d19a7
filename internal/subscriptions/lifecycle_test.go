package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/moneypilot-backend/internal/transactions"
	"github.com/angelmondragon/moneypilot-backend/pkg/db"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/dbtest"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
)

func debitRow(tenant, merchant, posted, amount string) models.Transaction {
	at, err := time.Parse("2006-01-02", posted)
	if err != nil {
		panic(err)
	}
	amt := decimal.RequireFromString(amount)
	m := merchant
	return models.Transaction{
		TenantID:   tenant,
		AccountID:  "chk",
		PostedAt:   at,
		Amount:     amt,
		Currency:   "USD",
		Merchant:   &m,
		DedupeHash: transactions.DedupeHash("chk", at, amt, &m, nil),
	}
}

func TestDetectForTenantKeepsCandidatesOfMerchantsThatDisappear(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.NewSQLite(t)
	txRepo := transactions.NewRepository(conn)
	candidates := NewCandidateRepository(conn)

	svc, err := NewService(ServiceParams{
		Tx:           db.NewFromConn(conn),
		Transactions: txRepo,
		Candidates:   candidates,
		Clock:        func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	_, err = txRepo.InsertIfAbsent(ctx, []models.Transaction{
		debitRow("T1", "NETFLIX", "2025-01-01", "-15.99"),
		debitRow("T1", "NETFLIX", "2025-02-01", "-15.99"),
		debitRow("T1", "NETFLIX", "2025-03-03", "-15.99"),
		debitRow("T1", "SPOTIFY", "2025-01-05", "-9.99"),
		debitRow("T1", "SPOTIFY", "2025-02-05", "-9.99"),
	})
	require.NoError(t, err)

	first, err := svc.DetectForTenant(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, first.Candidates, 2)

	before, err := candidates.ListByTenant(ctx, "T1", 0)
	require.NoError(t, err)
	require.Len(t, before, 2)
	require.Equal(t, "SPOTIFY", before[1].MerchantNormalized)
	spotify := before[1]

	require.NoError(t, conn.Where("tenant_id = ? AND merchant = ?", "T1", "SPOTIFY").Delete(&models.Transaction{}).Error)
	_, err = txRepo.InsertIfAbsent(ctx, []models.Transaction{
		debitRow("T1", "NETFLIX", "2025-04-02", "-17.99"),
	})
	require.NoError(t, err)

	second, err := svc.DetectForTenant(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, second.Candidates, 1)
	assert.Equal(t, "NETFLIX", second.Candidates[0].MerchantNormalized)
	assert.Equal(t, 3, second.Candidates[0].Observations)

	after, err := candidates.ListByTenant(ctx, "T1", 0)
	require.NoError(t, err)
	require.Len(t, after, 2)

	assert.Equal(t, "NETFLIX", after[0].MerchantNormalized)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, 3, after[0].Observations)

	kept := after[1]
	assert.Equal(t, spotify.ID, kept.ID)
	assert.Equal(t, enums.CadenceMonthly, kept.Cadence)
	assert.True(t, spotify.AvgAmount.Equal(kept.AvgAmount), "avg %s vs %s", spotify.AvgAmount, kept.AvgAmount)
	assert.True(t, spotify.LastSeenAt.Equal(kept.LastSeenAt))
	assert.True(t, spotify.NextExpectedAt.Equal(kept.NextExpectedAt))
	assert.Equal(t, spotify.Observations, kept.Observations)
	assert.Equal(t, spotify.Confidence, kept.Confidence)
}
