package subscriptions

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
)

func strPtr(v string) *string { return &v }

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return parsed
}

func txn(t *testing.T, tenant, merchant, posted, amount string) models.Transaction {
	t.Helper()
	out := models.Transaction{
		ID:        uuid.New(),
		TenantID:  tenant,
		AccountID: "acct-1",
		PostedAt:  day(t, posted),
		Amount:    decimal.RequireFromString(amount),
	}
	if merchant != "" {
		out.Merchant = strPtr(merchant)
	}
	return out
}

func netflixScenario(t *testing.T) []models.Transaction {
	return []models.Transaction{
		txn(t, "T1", "NETFLIX", "2025-01-01", "-15.99"),
		txn(t, "T1", "NETFLIX", "2025-02-01", "-15.99"),
		txn(t, "T1", "NETFLIX", "2025-03-03", "-15.99"),
	}
}

func findCandidate(report Report, merchant string) *models.SubscriptionCandidate {
	for i := range report.Candidates {
		if report.Candidates[i].MerchantNormalized == merchant {
			return &report.Candidates[i]
		}
	}
	return nil
}

func assertSameCandidates(t *testing.T, a, b []models.SubscriptionCandidate) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("candidate count mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.TenantID != y.TenantID ||
			x.MerchantNormalized != y.MerchantNormalized ||
			x.Cadence != y.Cadence ||
			!x.AvgAmount.Equal(y.AvgAmount) ||
			!x.LastSeenAt.Equal(y.LastSeenAt) ||
			!x.NextExpectedAt.Equal(y.NextExpectedAt) ||
			x.Confidence != y.Confidence ||
			x.Status != y.Status ||
			x.Observations != y.Observations ||
			x.AvgGapDays != y.AvgGapDays {
			t.Fatalf("candidate %d differs:\n%+v\n%+v", i, x, y)
		}
	}
}

func TestDetectNetflixEndToEnd(t *testing.T) {
	report, err := Detect("T1", netflixScenario(t))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(report.Candidates) != 1 {
		t.Fatalf("expected one candidate, got %d", len(report.Candidates))
	}
	c := report.Candidates[0]
	if c.TenantID != "T1" || c.MerchantNormalized != "NETFLIX" {
		t.Fatalf("unexpected identity %s/%s", c.TenantID, c.MerchantNormalized)
	}
	if c.Cadence != enums.CadenceMonthly {
		t.Fatalf("expected monthly, got %s", c.Cadence)
	}
	if !c.AvgAmount.Equal(decimal.RequireFromString("-15.99")) {
		t.Fatalf("expected avg -15.99, got %s", c.AvgAmount)
	}
	if !c.LastSeenAt.Equal(day(t, "2025-03-03")) {
		t.Fatalf("unexpected last seen %v", c.LastSeenAt)
	}
	if !c.NextExpectedAt.Equal(day(t, "2025-04-03")) {
		t.Fatalf("expected next 2025-04-03, got %v", c.NextExpectedAt)
	}
	if math.Abs(c.Confidence-2.0/6.0) > 1e-9 {
		t.Fatalf("expected confidence 1/3, got %f", c.Confidence)
	}
	if c.Observations != 2 || c.AvgGapDays != 30.5 {
		t.Fatalf("unexpected observations=%d avgGap=%f", c.Observations, c.AvgGapDays)
	}
	if c.Status != enums.CandidateStatusCandidate {
		t.Fatalf("unexpected status %s", c.Status)
	}
	if report.DebitsScanned != 3 || report.SkippedNoMerchant != 0 {
		t.Fatalf("unexpected counters scanned=%d skipped=%d", report.DebitsScanned, report.SkippedNoMerchant)
	}
}

func TestDetectGroupingIgnoresInputOrder(t *testing.T) {
	txns := append(netflixScenario(t),
		txn(t, "T1", "SPOTIFY", "2025-01-10", "-9.99"),
		txn(t, "T1", "SPOTIFY", "2025-02-10", "-9.99"),
		txn(t, "T1", "GYM", "2025-01-01", "-30.00"),
		txn(t, "T1", "GYM", "2025-01-08", "-30.00"),
		txn(t, "T1", "GYM", "2025-01-15", "-30.00"),
	)

	baseline, err := Detect("T1", txns)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(baseline.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(baseline.Candidates))
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		shuffled := make([]models.Transaction, len(txns))
		copy(shuffled, txns)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Detect("T1", shuffled)
		if err != nil {
			t.Fatalf("detect shuffled: %v", err)
		}
		assertSameCandidates(t, baseline.Candidates, got.Candidates)
	}

	if gym := findCandidate(baseline, "GYM"); gym == nil || gym.Cadence != enums.CadenceWeekly || gym.Observations != 2 {
		t.Fatalf("gym candidate mixed with another merchant: %+v", gym)
	}
}

func TestDetectFallsBackToDescription(t *testing.T) {
	withMerchant := netflixScenario(t)

	mixed := netflixScenario(t)
	mixed[1].Merchant = nil
	mixed[1].DescriptionRaw = strPtr("NETFLIX")
	mixed[2].Merchant = strPtr("   ")
	mixed[2].DescriptionRaw = strPtr("NETFLIX")

	a, err := Detect("T1", withMerchant)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	b, err := Detect("T1", mixed)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	assertSameCandidates(t, a.Candidates, b.Candidates)
}

func TestDetectSkipsDebitsWithoutMerchantKey(t *testing.T) {
	txns := netflixScenario(t)
	orphan := txn(t, "T1", "", "2025-02-14", "-4.00")
	orphan.DescriptionRaw = strPtr("  ")
	txns = append(txns, orphan, txn(t, "T1", "", "2025-02-15", "-1.00"))

	report, err := Detect("T1", txns)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if report.SkippedNoMerchant != 2 {
		t.Fatalf("expected 2 skipped, got %d", report.SkippedNoMerchant)
	}
	if report.DebitsScanned != 5 {
		t.Fatalf("expected 5 debits scanned, got %d", report.DebitsScanned)
	}
	if len(report.Candidates) != 1 {
		t.Fatalf("expected only NETFLIX, got %d candidates", len(report.Candidates))
	}
}

func TestClassifyCadenceBands(t *testing.T) {
	cases := []struct {
		gap  float64
		want enums.Cadence
	}{
		{30, enums.CadenceMonthly},
		{27, enums.CadenceMonthly},
		{33, enums.CadenceMonthly},
		{26.99, enums.CadenceUnknown},
		{33.01, enums.CadenceUnknown},
		{20.0 / 3.0, enums.CadenceWeekly},
		{6, enums.CadenceWeekly},
		{8, enums.CadenceWeekly},
		{8.5, enums.CadenceUnknown},
		{45, enums.CadenceUnknown},
		{85, enums.CadenceQuarterly},
		{91, enums.CadenceQuarterly},
		{95, enums.CadenceQuarterly},
		{96, enums.CadenceUnknown},
		{1, enums.CadenceUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyCadence(tc.gap); got != tc.want {
			t.Errorf("ClassifyCadence(%v) = %s, want %s", tc.gap, got, tc.want)
		}
	}
}

func TestDetectCadenceFromGaps(t *testing.T) {
	cases := []struct {
		name  string
		dates []string
		want  enums.Cadence
	}{
		{"monthly 30/31/29", []string{"2025-01-01", "2025-01-31", "2025-03-03", "2025-04-01"}, enums.CadenceMonthly},
		{"weekly 7/7/6", []string{"2025-01-01", "2025-01-08", "2025-01-15", "2025-01-21"}, enums.CadenceWeekly},
		{"single 45 day gap", []string{"2025-01-01", "2025-02-15"}, enums.CadenceUnknown},
		{"quarterly", []string{"2025-01-01", "2025-04-01", "2025-07-01"}, enums.CadenceQuarterly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var txns []models.Transaction
			for _, d := range tc.dates {
				txns = append(txns, txn(t, "T1", "ACME", d, "-5.00"))
			}
			report, err := Detect("T1", txns)
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if len(report.Candidates) != 1 {
				t.Fatalf("expected 1 candidate, got %d", len(report.Candidates))
			}
			if got := report.Candidates[0].Cadence; got != tc.want {
				t.Fatalf("expected %s, got %s (avg gap %f)", tc.want, got, report.Candidates[0].AvgGapDays)
			}
		})
	}
}

func TestConfidenceSaturates(t *testing.T) {
	cases := map[int]float64{0: 0, 1: 1.0 / 6.0, 3: 0.5, 6: 1, 12: 1}
	for cnt, want := range cases {
		if got := Confidence(cnt); math.Abs(got-want) > 1e-9 {
			t.Errorf("Confidence(%d) = %f, want %f", cnt, got, want)
		}
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	txns := append(netflixScenario(t), txn(t, "T1", "SPOTIFY", "2025-01-10", "-9.99"), txn(t, "T1", "SPOTIFY", "2025-02-09", "-10.99"))
	first, err := Detect("T1", txns)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	second, err := Detect("T1", txns)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	assertSameCandidates(t, first.Candidates, second.Candidates)
}

func TestDetectSingleDebitYieldsNoCandidate(t *testing.T) {
	report, err := Detect("T1", []models.Transaction{txn(t, "T1", "ONE-OFF", "2025-01-01", "-99.00")})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(report.Candidates) != 0 || len(report.Merchants) != 0 {
		t.Fatalf("expected no output, got %+v", report.Candidates)
	}
	if report.DebitsScanned != 1 {
		t.Fatalf("expected 1 scanned debit, got %d", report.DebitsScanned)
	}
}

func TestDetectExcludesCredits(t *testing.T) {
	base, err := Detect("T1", netflixScenario(t))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}

	withRefunds := append(netflixScenario(t),
		txn(t, "T1", "NETFLIX", "2025-02-15", "15.99"),
		txn(t, "T1", "NETFLIX", "2025-03-20", "0"),
	)
	got, err := Detect("T1", withRefunds)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	assertSameCandidates(t, base.Candidates, got.Candidates)
	if got.DebitsScanned != 3 {
		t.Fatalf("credits must not count as debits, got %d", got.DebitsScanned)
	}
}

func TestDetectIgnoresOtherTenants(t *testing.T) {
	txns := append(netflixScenario(t),
		txn(t, "T2", "NETFLIX", "2025-03-10", "-15.99"),
		txn(t, "T2", "HULU", "2025-01-01", "-7.99"),
		txn(t, "T2", "HULU", "2025-02-01", "-7.99"),
	)
	report, err := Detect("T1", txns)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(report.Candidates) != 1 || report.Candidates[0].MerchantNormalized != "NETFLIX" {
		t.Fatalf("expected only T1 NETFLIX, got %+v", report.Candidates)
	}
	if !report.Candidates[0].LastSeenAt.Equal(day(t, "2025-03-03")) {
		t.Fatalf("T2 transaction leaked into T1 stats")
	}
}

func TestDetectRejectsMissingPostedAt(t *testing.T) {
	txns := netflixScenario(t)
	txns[1].PostedAt = time.Time{}

	_, err := Detect("T1", txns)
	if err == nil {
		t.Fatal("expected error for zero posted_at")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok || details["transaction_id"] != txns[1].ID.String() {
		t.Fatalf("expected offending id in details, got %#v", pkgerrors.As(err).Details())
	}

	// another tenant's malformed row does not fail this tenant's batch
	other := txn(t, "T2", "X", "2025-01-01", "-1")
	other.PostedAt = time.Time{}
	if _, err := Detect("T1", append(netflixScenario(t), other)); err != nil {
		t.Fatalf("unexpected error from other tenant row: %v", err)
	}
}

func TestDetectAverageAmountUsesGapBearingDebits(t *testing.T) {
	txns := []models.Transaction{
		txn(t, "T1", "UTILITY", "2025-01-01", "-10.00"),
		txn(t, "T1", "UTILITY", "2025-01-31", "-20.00"),
		txn(t, "T1", "UTILITY", "2025-03-02", "-30.00"),
	}
	report, err := Detect("T1", txns)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	c := report.Candidates[0]
	if !c.AvgAmount.Equal(decimal.RequireFromString("-25")) {
		t.Fatalf("expected -25, got %s", c.AvgAmount)
	}
	stats := report.Merchants[0]
	if !stats.AvgAmountDelta.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected delta 10, got %s", stats.AvgAmountDelta)
	}
	if stats.StdGapDays != 0 {
		t.Fatalf("expected zero std dev for equal gaps, got %f", stats.StdGapDays)
	}
}

func TestDetectGapStatistics(t *testing.T) {
	txns := []models.Transaction{
		txn(t, "T1", "ACME", "2025-01-01", "-5"),
		txn(t, "T1", "ACME", "2025-01-31", "-5"),
		txn(t, "T1", "ACME", "2025-03-03", "-5"),
		txn(t, "T1", "ACME", "2025-04-01", "-5"),
	}
	report, err := Detect("T1", txns)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	stats := report.Merchants[0]
	if stats.AvgGapDays != 30 {
		t.Fatalf("expected avg gap 30, got %f", stats.AvgGapDays)
	}
	if want := math.Sqrt(2.0 / 3.0); math.Abs(stats.StdGapDays-want) > 1e-9 {
		t.Fatalf("expected population std %f, got %f", want, stats.StdGapDays)
	}
}

func TestDetectFractionalGaps(t *testing.T) {
	first := txn(t, "T1", "COFFEE", "2025-01-01", "-4.50")
	second := txn(t, "T1", "COFFEE", "2025-01-01", "-4.50")
	second.PostedAt = first.PostedAt.Add(7*24*time.Hour + 12*time.Hour)

	report, err := Detect("T1", []models.Transaction{first, second})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	c := report.Candidates[0]
	if c.AvgGapDays != 7.5 {
		t.Fatalf("expected 7.5 day gap, got %f", c.AvgGapDays)
	}
	// last seen 2025-01-08 12:00 truncates to 2025-01-08, 7.5 rounds up to 8
	if !c.NextExpectedAt.Equal(day(t, "2025-01-16")) {
		t.Fatalf("unexpected next expected %v", c.NextExpectedAt)
	}
}

func TestNextExpectedRoundsHalfUpInUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	lastSeen := time.Date(2025, 3, 3, 22, 0, 0, 0, loc) // 2025-03-04 03:00 UTC

	cases := []struct {
		gap  float64
		want string
	}{
		{30.5, "2025-04-04"},
		{30.49, "2025-04-03"},
		{6.5, "2025-03-11"},
		{0, "2025-03-04"},
	}
	for _, tc := range cases {
		got := NextExpected(lastSeen, tc.gap)
		if !got.Equal(day(t, tc.want)) || got.Location() != time.UTC {
			t.Errorf("NextExpected(gap=%v) = %v, want %s UTC", tc.gap, got, tc.want)
		}
	}
}

func TestReportCountByCadence(t *testing.T) {
	r := &Report{Candidates: []models.SubscriptionCandidate{
		{Cadence: enums.CadenceMonthly},
		{Cadence: enums.CadenceMonthly},
		{Cadence: enums.CadenceUnknown},
	}}
	counts := r.CountByCadence()
	if counts[enums.CadenceMonthly] != 2 || counts[enums.CadenceUnknown] != 1 || counts[enums.CadenceWeekly] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
	var nilReport *Report
	if len(nilReport.CountByCadence()) != 0 {
		t.Fatal("nil report should have no counts")
	}
}
