package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
	"github.com/angelmondragon/moneypilot-backend/pkg/metrics"
)

const defaultTimeout = 2 * time.Minute

// DefaultListLimit caps ListCandidates when no smaller limit is configured.
const DefaultListLimit = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransactionSource reads the tenant's debits (amount < 0).
type TransactionSource interface {
	ListDebits(ctx context.Context, tenantID string) ([]models.Transaction, error)
}

// Service runs detection and serves stored candidates.
type Service interface {
	DetectForTenant(ctx context.Context, tenantID string) (*Report, error)
	ListCandidates(ctx context.Context, tenantID string, limit int) ([]models.SubscriptionCandidate, error)
}

// ServiceParams wires the detection service. Publisher, Metrics and Logger are optional.
type ServiceParams struct {
	Tx           txRunner
	Transactions TransactionSource
	Candidates   CandidateRepository
	Publisher    EventPublisher
	Metrics      *metrics.DetectorMetrics
	Logger       *logger.Logger
	Timeout      time.Duration
	ListLimit    int
	Clock        func() time.Time
}

type service struct {
	tx           txRunner
	transactions TransactionSource
	candidates   CandidateRepository
	publisher    EventPublisher
	metrics      *metrics.DetectorMetrics
	logg         *logger.Logger
	timeout      time.Duration
	listLimit    int
	now          func() time.Time
}

// NewService builds the detection service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transaction source required")
	}
	if params.Candidates == nil {
		return nil, fmt.Errorf("candidate repository required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := params.ListLimit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:           params.Tx,
		transactions: params.Transactions,
		candidates:   params.Candidates,
		publisher:    params.Publisher,
		metrics:      params.Metrics,
		logg:         params.Logger,
		timeout:      timeout,
		listLimit:    limit,
		now:          now,
	}, nil
}

func (s *service) DetectForTenant(ctx context.Context, tenantID string) (*Report, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if s.logg != nil {
		ctx = s.logg.WithTenantID(ctx, tenantID)
	}

	started := s.now()
	report, err := s.detect(ctx, tenantID)
	elapsed := s.now().Sub(started)
	if err != nil {
		s.metrics.ObserveRun(runOutcome(err), elapsed)
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds()), "subscriptions.detect.failed", err)
		}
		return nil, err
	}

	s.metrics.ObserveRun("success", elapsed)
	for cadence, n := range report.CountByCadence() {
		s.metrics.AddCandidates(string(cadence), n)
	}
	s.metrics.AddSkipped("no_merchant", report.SkippedNoMerchant)

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"debits_scanned":      report.DebitsScanned,
			"candidates":          len(report.Candidates),
			"skipped_no_merchant": report.SkippedNoMerchant,
			"duration_ms":         elapsed.Milliseconds(),
		}), "subscriptions.detect.completed")
	}

	s.publish(ctx, report)
	return report, nil
}

func (s *service) detect(parent context.Context, tenantID string) (*Report, error) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	txns, err := s.transactions.ListDebits(ctx, tenantID)
	if err != nil {
		return nil, s.storeError(ctx, err, "list debits")
	}

	report, err := Detect(tenantID, txns)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, s.storeError(ctx, err, "detect")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		stored, err := s.candidates.WithTx(tx).UpsertCandidates(ctx, tenantID, report.Candidates)
		if err != nil {
			return err
		}
		report.Candidates = stored
		return nil
	})
	if err != nil {
		return nil, s.storeError(ctx, err, "upsert candidates")
	}
	if report.Candidates == nil {
		report.Candidates = []models.SubscriptionCandidate{}
	}
	return &report, nil
}

func (s *service) storeError(ctx context.Context, err error, step string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "detection window exceeded").
			WithDetails(map[string]any{"step": step, "timeout": s.timeout.String()})
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step).WithDetails(map[string]any{"step": step})
}

func (s *service) publish(ctx context.Context, report *Report) {
	if s.publisher == nil {
		return
	}
	data, attrs, err := newDetectedEvent(report, s.now()).encode()
	if err == nil {
		_, err = s.publisher.Publish(ctx, data, attrs)
	}
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "subscriptions.detect.publish_failed")
	}
}

func (s *service) ListCandidates(ctx context.Context, tenantID string, limit int) ([]models.SubscriptionCandidate, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}
	rows, err := s.candidates.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription candidates")
	}
	if rows == nil {
		rows = []models.SubscriptionCandidate{}
	}
	return rows, nil
}

func runOutcome(err error) string {
	if pkgerrors.IsCode(err, pkgerrors.CodeTimeout) {
		return "timeout"
	}
	return "failure"
}
