package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryRollup aggregates one tenant's spend and income per month and category.
type CategoryRollup struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID   string          `gorm:"column:tenant_id;type:text;not null"`
	Month      string          `gorm:"column:month;type:text;not null"`
	CategoryID string          `gorm:"column:category_id;type:text;not null"`
	Spent      decimal.Decimal `gorm:"column:spent;type:numeric(14,2);not null"`
	Income     decimal.Decimal `gorm:"column:income;type:numeric(14,2);not null"`
	TxnCount   int             `gorm:"column:txn_count;not null"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

func (CategoryRollup) TableName() string { return "category_month_rollups" }
