package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/moneypilot-backend/internal/app"
	"github.com/angelmondragon/moneypilot-backend/internal/cron"
	"github.com/angelmondragon/moneypilot-backend/internal/rollups"
	"github.com/angelmondragon/moneypilot-backend/internal/subscriptions"
	"github.com/angelmondragon/moneypilot-backend/pkg/config"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type output struct {
	Report  subscriptions.ReportDTO  `json:"report"`
	Rollups *rollups.RecomputeResult `json:"rollups,omitempty"`
}

func main() {
	tenant := flag.String("tenant", "", "tenant id to scan (required)")
	withRollups := flag.Bool("rollups", false, "also recompute category rollups")
	flag.Parse()

	tenantID := strings.TrimSpace(*tenant)
	if tenantID == "" {
		fmt.Fprintln(os.Stderr, "missing -tenant")
		os.Exit(2)
	}

	// logs go to stderr so stdout stays machine readable
	logg := logger.New(logger.Options{ServiceName: "detect", Output: os.Stderr})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "detect",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	ctx := logg.WithTenantID(context.Background(), tenantID)
	application, err := app.Open(ctx, cfg, logg, nil)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap application", err)
		os.Exit(1)
	}
	defer application.Close()

	var out output
	err = application.TenantLocker.Run(ctx, tenantID, func(ctx context.Context) error {
		report, err := application.Subscriptions.DetectForTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		out.Report = subscriptions.NewReportDTO(report)
		if *withRollups {
			out.Rollups, err = application.Rollups.Recompute(ctx, tenantID)
		}
		return err
	})
	if errors.Is(err, cron.ErrLockHeld) {
		fmt.Fprintf(os.Stderr, "detection already running for tenant %s\n", tenantID)
		os.Exit(3)
	}
	if err != nil {
		logg.Error(ctx, "detection failed", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
		os.Exit(1)
	}
}
