package categories

import "github.com/angelmondragon/moneypilot-backend/pkg/db/models"

// CategoryDTO is the client payload for a category.
type CategoryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// NewCategoryDTOs maps a slice, never returning nil.
func NewCategoryDTOs(rows []models.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryDTO{ID: row.ID, Name: row.Name, Color: row.Color, Icon: row.Icon})
	}
	return out
}
