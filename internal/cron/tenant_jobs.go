package cron

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/moneypilot-backend/internal/rollups"
	"github.com/angelmondragon/moneypilot-backend/internal/subscriptions"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

const (
	SubscriptionDetectJobName = "subscription_detect"
	RollupRecomputeJobName    = "rollup_recompute"
)

// TenantLister enumerates tenants that own at least one transaction.
type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
}

type tenantRunner interface {
	Run(ctx context.Context, tenantID string, fn func(context.Context) error) error
}

// SubscriptionDetectJobParams configures the nightly detection sweep.
type SubscriptionDetectJobParams struct {
	Logger   *logger.Logger
	Tenants  TenantLister
	Detector subscriptions.Service
	Locker   tenantRunner
}

// NewSubscriptionDetectJob builds a job that runs detection for every tenant.
// Tenants whose lock is held by an on-demand run are skipped until the next cycle.
func NewSubscriptionDetectJob(params SubscriptionDetectJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant lister required")
	}
	if params.Detector == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("tenant locker required")
	}
	return &subscriptionDetectJob{
		logg:     params.Logger,
		tenants:  params.Tenants,
		detector: params.Detector,
		locker:   params.Locker,
	}, nil
}

type subscriptionDetectJob struct {
	logg     *logger.Logger
	tenants  TenantLister
	detector subscriptions.Service
	locker   tenantRunner
}

func (j *subscriptionDetectJob) Name() string { return SubscriptionDetectJobName }

func (j *subscriptionDetectJob) Run(ctx context.Context) error {
	return forEachTenant(ctx, j.logg, j.tenants, func(ctx context.Context, tenantID string) error {
		err := j.locker.Run(ctx, tenantID, func(ctx context.Context) error {
			_, err := j.detector.DetectForTenant(ctx, tenantID)
			return err
		})
		if errors.Is(err, ErrLockHeld) {
			j.logg.Info(ctx, "detection already running for tenant; skipping")
			return nil
		}
		return err
	})
}

// RollupRecomputeJobParams configures the rollup refresh sweep.
type RollupRecomputeJobParams struct {
	Logger  *logger.Logger
	Tenants TenantLister
	Rollups rollups.Service
}

// NewRollupRecomputeJob builds a job that recomputes category rollups for every tenant.
func NewRollupRecomputeJob(params RollupRecomputeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant lister required")
	}
	if params.Rollups == nil {
		return nil, fmt.Errorf("rollup service required")
	}
	return &rollupRecomputeJob{
		logg:    params.Logger,
		tenants: params.Tenants,
		rollups: params.Rollups,
	}, nil
}

type rollupRecomputeJob struct {
	logg    *logger.Logger
	tenants TenantLister
	rollups rollups.Service
}

func (j *rollupRecomputeJob) Name() string { return RollupRecomputeJobName }

func (j *rollupRecomputeJob) Run(ctx context.Context) error {
	return forEachTenant(ctx, j.logg, j.tenants, func(ctx context.Context, tenantID string) error {
		_, err := j.rollups.Recompute(ctx, tenantID)
		return err
	})
}

// forEachTenant keeps going after a tenant fails and returns every failure combined.
func forEachTenant(ctx context.Context, logg *logger.Logger, lister TenantLister, fn func(context.Context, string) error) error {
	tenantIDs, err := lister.ListTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	var combined error
	processed := 0
	for _, tenantID := range tenantIDs {
		if err := ctx.Err(); err != nil {
			combined = multierr.Append(combined, err)
			break
		}
		tenantCtx := logg.WithTenantID(ctx, tenantID)
		if err := fn(tenantCtx, tenantID); err != nil {
			logg.Error(tenantCtx, "tenant run failed", err)
			combined = multierr.Append(combined, fmt.Errorf("tenant %s: %w", tenantID, err))
			continue
		}
		processed++
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"tenants":   len(tenantIDs),
		"processed": processed,
	})
	logg.Info(ctx, "tenant sweep finished")
	return combined
}
