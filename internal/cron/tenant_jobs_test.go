package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/moneypilot-backend/internal/rollups"
	"github.com/angelmondragon/moneypilot-backend/internal/subscriptions"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type stubTenants struct {
	ids []string
	err error
}

func (s stubTenants) ListTenantIDs(context.Context) ([]string, error) { return s.ids, s.err }

type stubDetector struct {
	calls []string
	fail  map[string]error
}

func (s *stubDetector) DetectForTenant(_ context.Context, tenantID string) (*subscriptions.Report, error) {
	s.calls = append(s.calls, tenantID)
	if err := s.fail[tenantID]; err != nil {
		return nil, err
	}
	return &subscriptions.Report{TenantID: tenantID}, nil
}

func (s *stubDetector) ListCandidates(context.Context, string, int) ([]models.SubscriptionCandidate, error) {
	return nil, nil
}

type stubRollups struct {
	calls []string
	fail  map[string]error
}

func (s *stubRollups) Recompute(_ context.Context, tenantID string) (*rollups.RecomputeResult, error) {
	s.calls = append(s.calls, tenantID)
	if err := s.fail[tenantID]; err != nil {
		return nil, err
	}
	return &rollups.RecomputeResult{TenantID: tenantID}, nil
}

func (s *stubRollups) Insights(context.Context, string, string) (*rollups.Insights, error) {
	return nil, nil
}

func (s *stubRollups) List(context.Context, string) ([]models.CategoryRollup, error) {
	return nil, nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestSubscriptionDetectJobSkipsLockedTenants(t *testing.T) {
	store := newMemoryStore()
	locker, _ := NewTenantLocker(store, "test", 0)
	store.data["mp:detect:test:T2"] = "api-request"

	detector := &stubDetector{}
	job, err := NewSubscriptionDetectJob(SubscriptionDetectJobParams{
		Logger:   quietLogger(),
		Tenants:  stubTenants{ids: []string{"T1", "T2", "T3"}},
		Detector: detector,
		Locker:   locker,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != SubscriptionDetectJobName {
		t.Fatalf("unexpected name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(detector.calls) != 2 || detector.calls[0] != "T1" || detector.calls[1] != "T3" {
		t.Fatalf("expected T1 and T3 detected, got %v", detector.calls)
	}
	if store.data["mp:detect:test:T2"] != "api-request" {
		t.Fatal("held lock must be left untouched")
	}
}

func TestSubscriptionDetectJobContinuesAfterFailure(t *testing.T) {
	locker, _ := NewTenantLocker(newMemoryStore(), "test", 0)
	detector := &stubDetector{fail: map[string]error{"T1": errors.New("db down")}}
	job, _ := NewSubscriptionDetectJob(SubscriptionDetectJobParams{
		Logger:   quietLogger(),
		Tenants:  stubTenants{ids: []string{"T1", "T2"}},
		Detector: detector,
		Locker:   locker,
	})

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if len(detector.calls) != 2 {
		t.Fatalf("expected both tenants attempted, got %v", detector.calls)
	}
}

func TestSubscriptionDetectJobRequiresDeps(t *testing.T) {
	if _, err := NewSubscriptionDetectJob(SubscriptionDetectJobParams{Logger: quietLogger()}); err == nil {
		t.Fatal("expected error without tenant lister")
	}
}

func TestRollupRecomputeJobRunsEveryTenant(t *testing.T) {
	svc := &stubRollups{fail: map[string]error{"T2": errors.New("boom")}}
	job, err := NewRollupRecomputeJob(RollupRecomputeJobParams{
		Logger:  quietLogger(),
		Tenants: stubTenants{ids: []string{"T1", "T2", "T3"}},
		Rollups: svc,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for failing tenant")
	}
	if len(svc.calls) != 3 {
		t.Fatalf("expected all tenants recomputed, got %v", svc.calls)
	}
}

func TestRollupRecomputeJobListFailure(t *testing.T) {
	svc := &stubRollups{}
	job, _ := NewRollupRecomputeJob(RollupRecomputeJobParams{
		Logger:  quietLogger(),
		Tenants: stubTenants{err: errors.New("db down")},
		Rollups: svc,
	})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
	if len(svc.calls) != 0 {
		t.Fatal("no tenant should run when listing fails")
	}
}
