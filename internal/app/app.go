// Package app opens the shared infrastructure and builds the domain services
// used by the api, cron-worker and detect binaries.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/moneypilot-backend/internal/accounts"
	"github.com/angelmondragon/moneypilot-backend/internal/categories"
	"github.com/angelmondragon/moneypilot-backend/internal/cron"
	"github.com/angelmondragon/moneypilot-backend/internal/dashboard"
	"github.com/angelmondragon/moneypilot-backend/internal/exports"
	"github.com/angelmondragon/moneypilot-backend/internal/rollups"
	"github.com/angelmondragon/moneypilot-backend/internal/rules"
	"github.com/angelmondragon/moneypilot-backend/internal/subscriptions"
	"github.com/angelmondragon/moneypilot-backend/internal/transactions"
	"github.com/angelmondragon/moneypilot-backend/pkg/bigquery"
	"github.com/angelmondragon/moneypilot-backend/pkg/config"
	"github.com/angelmondragon/moneypilot-backend/pkg/db"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
	"github.com/angelmondragon/moneypilot-backend/pkg/metrics"
	"github.com/angelmondragon/moneypilot-backend/pkg/migrate"
	"github.com/angelmondragon/moneypilot-backend/pkg/pubsub"
	"github.com/angelmondragon/moneypilot-backend/pkg/redis"
	"github.com/angelmondragon/moneypilot-backend/pkg/storage/gcs"
)

// App holds opened clients and the services built on them. GCS, PubSub and
// BigQuery are nil unless configured; Exports is nil without a bucket.
type App struct {
	Config *config.Config
	Logger *logger.Logger

	DB       *db.Client
	Redis    *redis.Client
	GCS      *gcs.Client
	PubSub   *pubsub.Client
	BigQuery *bigquery.Client

	publisher *pubsub.TopicPublisher

	TransactionRepo transactions.Repository
	Imports         transactions.ImportService
	Transactions    transactions.Service
	Accounts        accounts.Service
	Categories      categories.Service
	Dashboard       dashboard.Service
	Rules           rules.Service
	Subscriptions   subscriptions.Service
	Rollups         rollups.Service
	Exports         exports.Service
	TenantLocker    *cron.TenantLocker
}

// Open connects to every configured dependency and wires the services. On
// error, whatever was already opened is closed.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{Config: cfg, Logger: logg}
	if err := a.open(ctx, reg); err != nil {
		if closeErr := a.Close(); closeErr != nil {
			err = multierr.Append(err, closeErr)
		}
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context, reg prometheus.Registerer) error {
	cfg := a.Config
	logg := a.Logger

	var err error
	if a.DB, err = db.New(ctx, cfg.DB, logg); err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	if err = migrate.MaybeRunDev(ctx, cfg, logg, a.DB); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}
	if a.Redis, err = redis.New(ctx, cfg.Redis, logg); err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}

	if cfg.GCS.Enabled() {
		if a.GCS, err = gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg); err != nil {
			return fmt.Errorf("bootstrap gcs: %w", err)
		}
	}
	if cfg.PubSub.Enabled() {
		if a.PubSub, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg); err != nil {
			return fmt.Errorf("bootstrap pubsub: %w", err)
		}
		a.publisher = a.PubSub.EventsPublisher()
	}
	if cfg.BigQuery.Enabled() {
		if a.BigQuery, err = bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg); err != nil {
			return fmt.Errorf("bootstrap bigquery: %w", err)
		}
	}
	return a.buildServices(reg)
}

func (a *App) buildServices(reg prometheus.Registerer) error {
	cfg := a.Config
	conn := a.DB.DB()

	a.TransactionRepo = transactions.NewRepository(conn)
	accountRepo := accounts.NewRepository(conn)
	ruleRepo := rules.NewRepository(conn)
	candidateRepo := subscriptions.NewCandidateRepository(conn)
	rollupRepo := rollups.NewRepository(conn)

	var err error
	if a.Rules, err = rules.NewService(ruleRepo); err != nil {
		return err
	}
	if a.Accounts, err = accounts.NewService(a.DB, accountRepo); err != nil {
		return err
	}
	if a.Imports, err = transactions.NewImportService(a.DB, a.TransactionRepo, ruleRepo, a.Accounts, a.Logger); err != nil {
		return err
	}
	a.Transactions, err = transactions.NewService(transactions.ServiceParams{
		Tx:       a.DB,
		Repo:     a.TransactionRepo,
		Accounts: accountRepo,
		Rules:    ruleRepo,
		Logger:   a.Logger,
	})
	if err != nil {
		return err
	}
	if a.Categories, err = categories.NewService(categories.NewRepository(conn)); err != nil {
		return err
	}
	if a.Dashboard, err = dashboard.NewService(a.Accounts, a.TransactionRepo, nil); err != nil {
		return err
	}

	subParams := subscriptions.ServiceParams{
		Tx:           a.DB,
		Transactions: a.TransactionRepo,
		Candidates:   candidateRepo,
		Logger:       a.Logger,
		Timeout:      cfg.Detector.Timeout,
		ListLimit:    cfg.Detector.ListLimit,
	}
	if reg != nil {
		subParams.Metrics = metrics.NewDetectorMetrics(reg)
	}
	if a.publisher != nil {
		subParams.Publisher = a.publisher
	}
	if a.Subscriptions, err = subscriptions.NewService(subParams); err != nil {
		return err
	}

	rollupParams := rollups.ServiceParams{
		Tx:           a.DB,
		Transactions: a.TransactionRepo,
		Rollups:      rollupRepo,
		Logger:       a.Logger,
	}
	if a.BigQuery != nil {
		rollupParams.Sink = a.BigQuery
		rollupParams.SinkTable = cfg.BigQuery.RollupsTable
	}
	if a.Rollups, err = rollups.NewService(rollupParams); err != nil {
		return err
	}

	if a.GCS != nil {
		a.Exports, err = exports.NewService(exports.ServiceParams{
			Uploader:      a.GCS,
			Prefix:        cfg.GCS.ExportPrefix,
			Transactions:  a.TransactionRepo,
			Accounts:      accountRepo,
			Rules:         ruleRepo,
			Subscriptions: candidateRepo,
			Rollups:       rollupRepo,
			Logger:        a.Logger,
		})
		if err != nil {
			return err
		}
	}

	a.TenantLocker, err = cron.NewTenantLocker(a.Redis, cfg.App.Env, cfg.Detector.LockTTL)
	return err
}

// Close flushes the event publisher and closes every opened client.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var err error
	a.publisher.Stop()
	if a.BigQuery != nil {
		err = multierr.Append(err, a.BigQuery.Close())
	}
	if a.PubSub != nil {
		err = multierr.Append(err, a.PubSub.Close())
	}
	if a.GCS != nil {
		err = multierr.Append(err, a.GCS.Close())
	}
	if a.Redis != nil {
		err = multierr.Append(err, a.Redis.Close())
	}
	if a.DB != nil {
		err = multierr.Append(err, a.DB.Close())
	}
	return err
}
