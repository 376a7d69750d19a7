package categories

import "github.com/angelmondragon/moneypilot-backend/pkg/db/models"

// Definition is a catalog entry copied into every tenant.
type Definition struct {
	ID    string
	Name  string
	Color string
	Icon  string
}

// Defaults is the starter catalog. The ids cover the import heuristics so
// every automatically assigned category resolves to a name.
var Defaults = []Definition{
	{ID: "food_dining", Name: "Food & Dining", Color: "#ef4444", Icon: "UtensilsCrossed"},
	{ID: "transportation", Name: "Transportation", Color: "#3b82f6", Icon: "Car"},
	{ID: "bills_utilities", Name: "Bills & Utilities", Color: "#f59e0b", Icon: "Receipt"},
	{ID: "shopping", Name: "Shopping", Color: "#8b5cf6", Icon: "ShoppingBag"},
	{ID: "entertainment", Name: "Entertainment", Color: "#06b6d4", Icon: "Film"},
	{ID: "healthcare", Name: "Healthcare", Color: "#10b981", Icon: "Heart"},
	{ID: "income", Name: "Income", Color: "#059669", Icon: "TrendingUp"},
	{ID: "other", Name: "Other", Color: "#6b7280", Icon: "MoreHorizontal"},
	{ID: "groceries", Name: "Groceries", Color: "#22c55e", Icon: "ShoppingCart"},
	{ID: "dining", Name: "Dining Out", Color: "#f97316", Icon: "Pizza"},
	{ID: "coffee", Name: "Coffee", Color: "#a16207", Icon: "Coffee"},
	{ID: "subscriptions", Name: "Subscriptions", Color: "#ec4899", Icon: "Repeat"},
}

func defaultRows(tenantID string) []models.Category {
	rows := make([]models.Category, 0, len(Defaults))
	for _, d := range Defaults {
		rows = append(rows, models.Category{
			TenantID: tenantID,
			ID:       d.ID,
			Name:     d.Name,
			Color:    d.Color,
			Icon:     d.Icon,
		})
	}
	return rows
}
