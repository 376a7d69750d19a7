package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/moneypilot-backend/api/controllers"
	"github.com/angelmondragon/moneypilot-backend/api/routes"
	"github.com/angelmondragon/moneypilot-backend/internal/app"
	"github.com/angelmondragon/moneypilot-backend/pkg/config"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"exports":  cfg.GCS.Enabled(),
		"events":   cfg.PubSub.Enabled(),
		"mirror":   cfg.BigQuery.Enabled(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			ReadyChecks:   readyChecks(application),
			Gatherer:      prometheus.DefaultGatherer,
			RateLimiter:   application.Redis,
			Subscriptions: application.Subscriptions,
			TenantLocker:  application.TenantLocker,
			Imports:       application.Imports,
			Accounts:      application.Accounts,
			Transactions:  application.Transactions,
			Categories:    application.Categories,
			Dashboard:     application.Dashboard,
			Rules:         application.Rules,
			Rollups:       application.Rollups,
			Exports:       application.Exports,
		}),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server stopped")
}

func readyChecks(a *app.App) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{
		"db":    a.DB,
		"redis": a.Redis,
	}
	if a.GCS != nil {
		checks["gcs"] = a.GCS
	}
	if a.PubSub != nil {
		checks["pubsub"] = a.PubSub
	}
	if a.BigQuery != nil {
		checks["bigquery"] = a.BigQuery
	}
	return checks
}
