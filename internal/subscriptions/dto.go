package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// CandidateDTO is the client payload for a subscription candidate.
type CandidateDTO struct {
	ID                 uuid.UUID       `json:"id"`
	TenantID           string          `json:"tenant_id"`
	MerchantNormalized string          `json:"merchant_normalized"`
	Cadence            string          `json:"cadence"`
	AvgAmount          decimal.Decimal `json:"avg_amount"`
	LastSeenAt         time.Time       `json:"last_seen_at"`
	NextExpectedAt     string          `json:"next_expected_at"`
	Confidence         float64         `json:"confidence"`
	Status             string          `json:"status"`
	Observations       int             `json:"observations"`
	AvgGapDays         float64         `json:"avg_gap_days"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ReportDTO is the client payload for a detection run.
type ReportDTO struct {
	TenantID          string          `json:"tenant_id"`
	DebitsScanned     int             `json:"debits_scanned"`
	SkippedNoMerchant int             `json:"skipped_no_merchant"`
	ByCadence         map[string]int  `json:"by_cadence"`
	Candidates        []CandidateDTO  `json:"candidates"`
	Merchants         []MerchantStats `json:"merchants"`
}

// NewCandidateDTO maps a stored candidate. NextExpectedAt is rendered as a
// calendar date.
func NewCandidateDTO(c models.SubscriptionCandidate) CandidateDTO {
	return CandidateDTO{
		ID:                 c.ID,
		TenantID:           c.TenantID,
		MerchantNormalized: c.MerchantNormalized,
		Cadence:            c.Cadence.String(),
		AvgAmount:          c.AvgAmount,
		LastSeenAt:         c.LastSeenAt.UTC(),
		NextExpectedAt:     c.NextExpectedAt.UTC().Format("2006-01-02"),
		Confidence:         c.Confidence,
		Status:             c.Status.String(),
		Observations:       c.Observations,
		AvgGapDays:         c.AvgGapDays,
		CreatedAt:          c.CreatedAt.UTC(),
	}
}

// NewCandidateDTOs maps a slice, never returning nil.
func NewCandidateDTOs(rows []models.SubscriptionCandidate) []CandidateDTO {
	out := make([]CandidateDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewCandidateDTO(row))
	}
	return out
}

// NewReportDTO maps a detection report.
func NewReportDTO(r *Report) ReportDTO {
	byCadence := map[string]int{}
	for cadence, n := range r.CountByCadence() {
		byCadence[cadence.String()] = n
	}
	merchants := r.Merchants
	if merchants == nil {
		merchants = []MerchantStats{}
	}
	return ReportDTO{
		TenantID:          r.TenantID,
		DebitsScanned:     r.DebitsScanned,
		SkippedNoMerchant: r.SkippedNoMerchant,
		ByCadence:         byCadence,
		Candidates:        NewCandidateDTOs(r.Candidates),
		Merchants:         merchants,
	}
}
