package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/moneypilot-backend/internal/app"
	"github.com/angelmondragon/moneypilot-backend/internal/cron"
	"github.com/angelmondragon/moneypilot-backend/pkg/config"
	"github.com/angelmondragon/moneypilot-backend/pkg/instance"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
	"github.com/angelmondragon/moneypilot-backend/pkg/metrics"
	"github.com/angelmondragon/moneypilot-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobName := flag.String("job", "", "run only the named job once (subscription_detect|rollup_recompute)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	application, err := app.Open(context.Background(), cfg, logg, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap application", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	registry, err := buildRegistry(application)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(application.Redis, redis.CronLockKey(cfg.App.Env, "scheduler"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Detector.CronInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"service_kind": cfg.Service.Kind,
		"interval":     cfg.Detector.CronInterval.String(),
		"worker_id":    instance.GetID(),
	})

	if *jobName != "" {
		job, ok := registry.Find(*jobName)
		if !ok {
			logg.Error(ctx, "unknown job", errors.New(*jobName))
			os.Exit(2)
		}
		if err := job.Run(logg.WithField(ctx, "job", job.Name())); err != nil {
			logg.Error(ctx, "job failed", err)
			os.Exit(1)
		}
		return
	}

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(a *app.App) (*cron.Registry, error) {
	detectJob, err := cron.NewSubscriptionDetectJob(cron.SubscriptionDetectJobParams{
		Logger:   a.Logger,
		Tenants:  a.TransactionRepo,
		Detector: a.Subscriptions,
		Locker:   a.TenantLocker,
	})
	if err != nil {
		return nil, err
	}
	rollupJob, err := cron.NewRollupRecomputeJob(cron.RollupRecomputeJobParams{
		Logger:  a.Logger,
		Tenants: a.TransactionRepo,
		Rollups: a.Rollups,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(detectJob, rollupJob), nil
}
