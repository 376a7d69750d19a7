package subscriptions

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
)

const (
	secondsPerDay = 86400.0

	// observations needed for full confidence
	confidenceSaturation = 6
)

type cadenceBand struct {
	cadence  enums.Cadence
	min, max float64
}

// Bands are checked in order; the first inclusive match wins.
var cadenceBands = []cadenceBand{
	{cadence: enums.CadenceMonthly, min: 27, max: 33},
	{cadence: enums.CadenceWeekly, min: 6, max: 8},
	{cadence: enums.CadenceQuarterly, min: 85, max: 95},
}

// Report summarises one detection pass over a tenant's transactions.
type Report struct {
	TenantID          string
	DebitsScanned     int
	SkippedNoMerchant int
	Candidates        []models.SubscriptionCandidate
	Merchants         []MerchantStats
}

// MerchantStats carries the per-merchant aggregates, including the ones that
// are not persisted on the candidate.
type MerchantStats struct {
	Merchant       string          `json:"merchant"`
	Cadence        enums.Cadence   `json:"cadence"`
	Observations   int             `json:"observations"`
	AvgGapDays     float64         `json:"avg_gap_days"`
	StdGapDays     float64         `json:"std_gap_days"`
	AvgAmountDelta decimal.Decimal `json:"avg_amount_delta"`
}

// CountByCadence tallies the report's candidates.
func (r *Report) CountByCadence() map[enums.Cadence]int {
	out := map[enums.Cadence]int{}
	if r == nil {
		return out
	}
	for _, c := range r.Candidates {
		out[c.Cadence]++
	}
	return out
}

type observation struct {
	amount      decimal.Decimal
	postedAt    time.Time
	gapDays     float64
	amountDelta decimal.Decimal
}

// Detect groups the tenant's debits by merchant key and derives one
// subscription candidate per merchant with at least two debits. It performs
// no I/O. Transactions from other tenants and credits are ignored.
func Detect(tenantID string, txns []models.Transaction) (Report, error) {
	report := Report{TenantID: tenantID}

	groups := map[string][]models.Transaction{}
	for _, txn := range txns {
		if txn.TenantID != tenantID {
			continue
		}
		if txn.PostedAt.IsZero() {
			return Report{}, pkgerrors.New(pkgerrors.CodeValidation, "transaction "+txn.ID.String()+" has no posted_at").
				WithDetails(map[string]any{"transaction_id": txn.ID.String()})
		}
		if !txn.Amount.IsNegative() {
			continue
		}
		report.DebitsScanned++

		key, ok := MerchantKey(txn)
		if !ok {
			report.SkippedNoMerchant++
			continue
		}
		groups[key] = append(groups[key], txn)
	}

	merchants := make([]string, 0, len(groups))
	for key := range groups {
		merchants = append(merchants, key)
	}
	sort.Strings(merchants)

	for _, merchant := range merchants {
		observations := observe(groups[merchant])
		if len(observations) == 0 {
			continue
		}
		candidate, stats := aggregate(tenantID, merchant, observations)
		report.Candidates = append(report.Candidates, candidate)
		report.Merchants = append(report.Merchants, stats)
	}

	return report, nil
}

// MerchantKey resolves the grouping key: the merchant when present, otherwise
// the raw description.
func MerchantKey(txn models.Transaction) (string, bool) {
	if txn.Merchant != nil {
		if key := strings.TrimSpace(*txn.Merchant); key != "" {
			return key, true
		}
	}
	if txn.DescriptionRaw != nil {
		if key := strings.TrimSpace(*txn.DescriptionRaw); key != "" {
			return key, true
		}
	}
	return "", false
}

// observe sorts a merchant's debits and returns one observation per debit
// after the first. The first debit only anchors the first gap.
func observe(txns []models.Transaction) []observation {
	if len(txns) < 2 {
		return nil
	}
	sorted := make([]models.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PostedAt.Before(sorted[j].PostedAt)
	})

	out := make([]observation, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		out = append(out, observation{
			amount:      cur.Amount,
			postedAt:    cur.PostedAt,
			gapDays:     cur.PostedAt.Sub(prev.PostedAt).Seconds() / secondsPerDay,
			amountDelta: cur.Amount.Sub(prev.Amount).Abs(),
		})
	}
	return out
}

func aggregate(tenantID, merchant string, obs []observation) (models.SubscriptionCandidate, MerchantStats) {
	cnt := len(obs)
	n := decimal.NewFromInt(int64(cnt))

	var gapSum float64
	amountSum := decimal.Zero
	deltaSum := decimal.Zero
	lastSeen := obs[0].postedAt
	for _, o := range obs {
		gapSum += o.gapDays
		amountSum = amountSum.Add(o.amount)
		deltaSum = deltaSum.Add(o.amountDelta)
		if o.postedAt.After(lastSeen) {
			lastSeen = o.postedAt
		}
	}
	avgGap := gapSum / float64(cnt)

	var variance float64
	for _, o := range obs {
		d := o.gapDays - avgGap
		variance += d * d
	}
	stdGap := math.Sqrt(variance / float64(cnt))

	cadence := ClassifyCadence(avgGap)

	candidate := models.SubscriptionCandidate{
		TenantID:           tenantID,
		MerchantNormalized: merchant,
		Cadence:            cadence,
		AvgAmount:          amountSum.Div(n).Round(2),
		LastSeenAt:         lastSeen.UTC(),
		NextExpectedAt:     NextExpected(lastSeen, avgGap),
		Confidence:         Confidence(cnt),
		Status:             enums.CandidateStatusCandidate,
		Observations:       cnt,
		AvgGapDays:         avgGap,
	}
	stats := MerchantStats{
		Merchant:       merchant,
		Cadence:        cadence,
		Observations:   cnt,
		AvgGapDays:     avgGap,
		StdGapDays:     stdGap,
		AvgAmountDelta: deltaSum.Div(n).Round(2),
	}
	return candidate, stats
}

// ClassifyCadence maps a mean gap in days onto a cadence band.
func ClassifyCadence(avgGapDays float64) enums.Cadence {
	for _, band := range cadenceBands {
		if avgGapDays >= band.min && avgGapDays <= band.max {
			return band.cadence
		}
	}
	return enums.CadenceUnknown
}

// Confidence is cnt/6 capped at 1.
func Confidence(observations int) float64 {
	if observations <= 0 {
		return 0
	}
	return math.Min(1, float64(observations)/confidenceSaturation)
}

// NextExpected truncates lastSeen to its UTC calendar date and adds the mean
// gap rounded half up to whole days.
func NextExpected(lastSeen time.Time, avgGapDays float64) time.Time {
	d := lastSeen.UTC()
	date := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return date.AddDate(0, 0, int(math.Floor(avgGapDays+0.5)))
}
