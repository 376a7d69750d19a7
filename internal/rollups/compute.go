package rollups

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

const (
	// UncategorizedID buckets transactions without a category.
	UncategorizedID = "uncategorized"

	monthLayout = "2006-01"
)

type rollupKey struct {
	month, category string
}

// Compute groups a tenant's transactions by UTC month and category. Debits
// add their absolute value to Spent, credits add to Income. Rows are sorted
// by month then category.
func Compute(tenantID string, txns []models.Transaction, now time.Time) []models.CategoryRollup {
	acc := map[rollupKey]*models.CategoryRollup{}
	for _, txn := range txns {
		if txn.TenantID != tenantID || txn.PostedAt.IsZero() {
			continue
		}
		key := rollupKey{month: MonthOf(txn.PostedAt), category: categoryOf(txn)}
		row, ok := acc[key]
		if !ok {
			row = &models.CategoryRollup{
				TenantID:   tenantID,
				Month:      key.month,
				CategoryID: key.category,
				Spent:      decimal.Zero,
				Income:     decimal.Zero,
			}
			acc[key] = row
		}
		if txn.Amount.IsNegative() {
			row.Spent = row.Spent.Add(txn.Amount.Abs())
		} else {
			row.Income = row.Income.Add(txn.Amount)
		}
		row.TxnCount++
	}

	out := make([]models.CategoryRollup, 0, len(acc))
	for _, row := range acc {
		row.UpdatedAt = now.UTC()
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// MonthOf renders the UTC month of t as YYYY-MM.
func MonthOf(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// ParseMonth validates a YYYY-MM string and returns its first instant in UTC.
func ParseMonth(value string) (time.Time, error) {
	return time.Parse(monthLayout, strings.TrimSpace(value))
}

// PreviousMonth renders the month before month as YYYY-MM.
func PreviousMonth(month time.Time) string {
	return month.AddDate(0, -1, 0).Format(monthLayout)
}

func categoryOf(txn models.Transaction) string {
	if txn.CategoryID != nil {
		if id := strings.TrimSpace(*txn.CategoryID); id != "" {
			return id
		}
	}
	return UncategorizedID
}
