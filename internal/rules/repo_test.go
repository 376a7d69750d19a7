package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/dbtest"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
)

func TestRepositoryCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))

	low := &models.Rule{
		TenantID:   "T1",
		Name:       "streaming",
		Priority:   10,
		Enabled:    true,
		Conditions: []models.RuleCondition{{Field: "merchant", Op: enums.RuleOpContains, Value: "netflix"}},
		Actions:    []models.RuleAction{{Type: enums.RuleActionSetCategory, CategoryID: "entertainment"}},
	}
	high := &models.Rule{
		TenantID: "T1",
		Name:     "tag everything",
		Priority: 1000,
		Enabled:  false,
		Actions:  []models.RuleAction{{Type: enums.RuleActionAddTag, Tag: "seen"}},
	}
	other := &models.Rule{TenantID: "T2", Name: "other", Priority: 1, Enabled: true}

	require.NoError(t, repo.Create(ctx, high))
	require.NoError(t, repo.Create(ctx, low))
	require.NoError(t, repo.Create(ctx, other))

	rows, err := repo.List(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "streaming", rows[0].Name)
	assert.Equal(t, low.ID, rows[0].ID)
	require.Len(t, rows[0].Conditions, 1)
	assert.Equal(t, enums.RuleOpContains, rows[0].Conditions[0].Op)
	assert.Equal(t, "entertainment", rows[0].Actions[0].CategoryID)

	assert.Equal(t, "tag everything", rows[1].Name)
	assert.False(t, rows[1].Enabled, "disabled flag must survive the round trip")
	assert.Empty(t, rows[1].Conditions)
}
