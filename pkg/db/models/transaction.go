package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Transaction is an imported bank line. Negative amounts are debits.
type Transaction struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID           string          `gorm:"column:tenant_id;type:text;not null"`
	AccountID          string          `gorm:"column:account_id;type:text;not null"`
	PostedAt           time.Time       `gorm:"column:posted_at;type:timestamptz;not null"`
	Amount             decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency           string          `gorm:"column:currency;type:text;not null;default:'USD'"`
	Merchant           *string         `gorm:"column:merchant;type:text"`
	DescriptionRaw     *string         `gorm:"column:description_raw;type:text"`
	CategoryID         *string         `gorm:"column:category_id;type:text"`
	CategoryConfidence float64         `gorm:"column:category_confidence;not null;default:0"`
	Tags               pq.StringArray  `gorm:"column:tags;type:text[]"`
	IsPending          bool            `gorm:"column:is_pending;not null;default:false"`
	DedupeHash         string          `gorm:"column:dedupe_hash;type:text;not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Transaction) TableName() string { return "transactions" }
