package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
)

// SubscriptionCandidate is the detector's per-merchant verdict, unique on
// (tenant_id, merchant_normalized).
type SubscriptionCandidate struct {
	ID                 uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID           string                `gorm:"column:tenant_id;type:text;not null"`
	MerchantNormalized string                `gorm:"column:merchant_normalized;type:text;not null"`
	Cadence            enums.Cadence         `gorm:"column:cadence;type:text;not null"`
	AvgAmount          decimal.Decimal       `gorm:"column:avg_amount;type:numeric(14,2);not null"`
	LastSeenAt         time.Time             `gorm:"column:last_seen_at;type:timestamptz;not null"`
	NextExpectedAt     time.Time             `gorm:"column:next_expected_at;type:date;not null"`
	Confidence         float64               `gorm:"column:confidence;not null"`
	Status             enums.CandidateStatus `gorm:"column:status;type:text;not null"`
	Observations       int                   `gorm:"column:observations;not null"`
	AvgGapDays         float64               `gorm:"column:avg_gap_days;not null"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (SubscriptionCandidate) TableName() string { return "subscription_candidates" }
