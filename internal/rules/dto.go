package rules

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// RuleDTO is the client payload for a rule.
type RuleDTO struct {
	ID         uuid.UUID              `json:"id"`
	TenantID   string                 `json:"tenant_id"`
	Name       string                 `json:"name"`
	Priority   int                    `json:"priority"`
	Enabled    bool                   `json:"enabled"`
	Conditions []models.RuleCondition `json:"conditions"`
	Actions    []models.RuleAction    `json:"actions"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewRuleDTO maps a stored rule.
func NewRuleDTO(r models.Rule) RuleDTO {
	conditions := append([]models.RuleCondition{}, r.Conditions...)
	actions := append([]models.RuleAction{}, r.Actions...)
	return RuleDTO{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Name:       r.Name,
		Priority:   r.Priority,
		Enabled:    r.Enabled,
		Conditions: conditions,
		Actions:    actions,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

// NewRuleDTOs maps a slice, never returning nil.
func NewRuleDTOs(rows []models.Rule) []RuleDTO {
	out := make([]RuleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewRuleDTO(row))
	}
	return out
}
