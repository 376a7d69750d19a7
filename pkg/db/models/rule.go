package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/moneypilot-backend/pkg/db/types"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
)

// RuleCondition compares one transaction field against Value.
type RuleCondition struct {
	Field string       `json:"field"`
	Op    enums.RuleOp `json:"op"`
	Value string       `json:"value"`
}

// RuleAction mutates a matched transaction.
type RuleAction struct {
	Type       enums.RuleActionType `json:"type"`
	CategoryID string               `json:"category_id,omitempty"`
	To         string               `json:"to,omitempty"`
	Tag        string               `json:"tag,omitempty"`
}

// Rule is a tenant categorisation rule. Lower priority runs first.
type Rule struct {
	ID         uuid.UUID                       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID   string                          `gorm:"column:tenant_id;type:text;not null"`
	Name       string                          `gorm:"column:name;type:text;not null"`
	Priority   int                             `gorm:"column:priority;not null"`
	Enabled    bool                            `gorm:"column:enabled;not null"`
	Conditions dbtypes.JSONList[RuleCondition] `gorm:"column:conditions;type:jsonb;not null"`
	Actions    dbtypes.JSONList[RuleAction]    `gorm:"column:actions;type:jsonb;not null"`
	CreatedAt  time.Time                       `gorm:"column:created_at;autoCreateTime"`
}

func (Rule) TableName() string { return "rules" }
