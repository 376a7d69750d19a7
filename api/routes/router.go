package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/moneypilot-backend/api/controllers"
	accountcontrollers "github.com/angelmondragon/moneypilot-backend/api/controllers/accounts"
	categorycontrollers "github.com/angelmondragon/moneypilot-backend/api/controllers/categories"
	dashboardcontrollers "github.com/angelmondragon/moneypilot-backend/api/controllers/dashboard"
	exportcontrollers "github.com/angelmondragon/moneypilot-backend/api/controllers/exports"
	importcontrollers "github.com/angelmondragon/moneypilot-backend/api/controllers/imports"
	insightcontrollers "github.com/angelmondragon/moneypilot-backend/api/controllers/insights"
	rulecontrollers "github.com/angelmondragon/moneypilot-backend/api/controllers/rules"
	subscriptioncontrollers "github.com/angelmondragon/moneypilot-backend/api/controllers/subscriptions"
	transactioncontrollers "github.com/angelmondragon/moneypilot-backend/api/controllers/transactions"
	"github.com/angelmondragon/moneypilot-backend/api/middleware"
	"github.com/angelmondragon/moneypilot-backend/internal/accounts"
	"github.com/angelmondragon/moneypilot-backend/internal/categories"
	"github.com/angelmondragon/moneypilot-backend/internal/dashboard"
	"github.com/angelmondragon/moneypilot-backend/internal/exports"
	"github.com/angelmondragon/moneypilot-backend/internal/rollups"
	"github.com/angelmondragon/moneypilot-backend/internal/rules"
	"github.com/angelmondragon/moneypilot-backend/internal/subscriptions"
	"github.com/angelmondragon/moneypilot-backend/internal/transactions"
	"github.com/angelmondragon/moneypilot-backend/pkg/config"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RouterParams carries the services mounted by NewRouter. Exports may be nil
// when no bucket is configured. RateLimiter nil disables throttling.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	ReadyChecks   map[string]controllers.Pinger
	Gatherer      prometheus.Gatherer
	RateLimiter   rateLimiterStore
	Subscriptions subscriptions.Service
	TenantLocker  subscriptioncontrollers.TenantLocker
	Imports       transactions.ImportService
	Accounts      accounts.Service
	Transactions  transactions.Service
	Categories    categories.Service
	Dashboard     dashboard.Service
	Rules         rules.Service
	Rollups       rollups.Service
	Exports       exports.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.ReadyChecks))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	limiter := p.RateLimiter
	detectPolicy := middleware.NewRateLimitPolicy("detect", cfg.RateLimit.Window, cfg.RateLimit.DetectLimit)
	importPolicy := middleware.NewRateLimitPolicy("imports", cfg.RateLimit.Window, cfg.RateLimit.ImportLimit)
	exportPolicy := middleware.NewRateLimitPolicy("exports", cfg.RateLimit.Window, cfg.RateLimit.ExportLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", subscriptioncontrollers.ListCandidates(p.Subscriptions, cfg.Detector.ListLimit, logg))
			r.With(middleware.TenantRateLimit(detectPolicy, limiter, logg)).
				Post("/detect", subscriptioncontrollers.Detect(p.Subscriptions, p.TenantLocker, logg))
		})

		r.With(middleware.TenantRateLimit(importPolicy, limiter, logg)).
			Post("/imports/csv", importcontrollers.ImportCSV(p.Imports, logg))

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountcontrollers.List(p.Accounts, logg))
			r.Post("/", accountcontrollers.Create(p.Accounts, logg))
			r.Put("/{id}", accountcontrollers.Update(p.Accounts, logg))
			r.Delete("/{id}", accountcontrollers.Delete(p.Accounts, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactioncontrollers.List(p.Transactions, logg))
			r.Post("/", transactioncontrollers.Create(p.Transactions, logg))
		})

		r.Get("/categories", categorycontrollers.List(p.Categories, logg))
		r.Get("/dashboard", dashboardcontrollers.Summary(p.Dashboard, logg))

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", rulecontrollers.List(p.Rules, logg))
			r.Post("/", rulecontrollers.Create(p.Rules, logg))
			r.Post("/test", rulecontrollers.Test(p.Rules, logg))
		})

		r.Route("/insights", func(r chi.Router) {
			r.Post("/recompute", insightcontrollers.Recompute(p.Rollups, logg))
			r.Get("/{month}", insightcontrollers.Month(p.Rollups, logg))
		})

		r.With(middleware.TenantRateLimit(exportPolicy, limiter, logg)).
			Post("/exports/full", exportcontrollers.Full(p.Exports, logg))
	})

	return r
}
