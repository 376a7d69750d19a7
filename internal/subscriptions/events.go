package subscriptions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventTypeDetected is published after a successful detection run.
const EventTypeDetected = "subscriptions.detected"

// EventPublisher delivers serialized events to a message bus.
type EventPublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// DetectedEvent is the payload of EventTypeDetected.
type DetectedEvent struct {
	EventID           string         `json:"event_id"`
	EventType         string         `json:"event_type"`
	TenantID          string         `json:"tenant_id"`
	Candidates        int            `json:"candidates"`
	ByCadence         map[string]int `json:"by_cadence"`
	SkippedNoMerchant int            `json:"skipped_no_merchant"`
	OccurredAt        time.Time      `json:"occurred_at"`
}

func newDetectedEvent(report *Report, now time.Time) DetectedEvent {
	byCadence := map[string]int{}
	for cadence, n := range report.CountByCadence() {
		byCadence[string(cadence)] = n
	}
	return DetectedEvent{
		EventID:           uuid.NewString(),
		EventType:         EventTypeDetected,
		TenantID:          report.TenantID,
		Candidates:        len(report.Candidates),
		ByCadence:         byCadence,
		SkippedNoMerchant: report.SkippedNoMerchant,
		OccurredAt:        now.UTC(),
	}
}

func (e DetectedEvent) encode() ([]byte, map[string]string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, nil, err
	}
	attrs := map[string]string{
		"event_id":   e.EventID,
		"event_type": e.EventType,
		"tenant_id":  e.TenantID,
	}
	return data, attrs, nil
}
