package rollups

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/moneypilot-backend/internal/transactions"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransactionSource lists a tenant's transactions.
type TransactionSource interface {
	ListByTenant(ctx context.Context, tenantID string, filter transactions.ListFilter) ([]models.Transaction, error)
}

// RowSink receives recomputed rollups, e.g. a BigQuery table.
type RowSink interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// RecomputeResult summarises a recompute.
type RecomputeResult struct {
	TenantID string `json:"tenant_id"`
	Rows     int    `json:"rows"`
	Months   int    `json:"months"`
	Mirrored bool   `json:"mirrored"`
}

// CategoryInsight compares one category against the previous month.
type CategoryInsight struct {
	CategoryID    string          `json:"category_id"`
	Spent         decimal.Decimal `json:"spent"`
	Income        decimal.Decimal `json:"income"`
	TxnCount      int             `json:"txn_count"`
	PreviousSpent decimal.Decimal `json:"previous_spent"`
	DeltaSpent    decimal.Decimal `json:"delta_spent"`
}

// Insights is one month's spend picture.
type Insights struct {
	TenantID      string            `json:"tenant_id"`
	Month         string            `json:"month"`
	PreviousMonth string            `json:"previous_month"`
	TotalSpent    decimal.Decimal   `json:"total_spent"`
	TotalIncome   decimal.Decimal   `json:"total_income"`
	PreviousSpent decimal.Decimal   `json:"previous_spent"`
	DeltaSpent    decimal.Decimal   `json:"delta_spent"`
	Categories    []CategoryInsight `json:"categories"`
}

// Service maintains rollups and serves insights.
type Service interface {
	Recompute(ctx context.Context, tenantID string) (*RecomputeResult, error)
	Insights(ctx context.Context, tenantID, month string) (*Insights, error)
	List(ctx context.Context, tenantID string) ([]models.CategoryRollup, error)
}

// ServiceParams wires the rollup service. Sink, SinkTable and Logger are optional.
type ServiceParams struct {
	Tx           txRunner
	Transactions TransactionSource
	Rollups      Repository
	Sink         RowSink
	SinkTable    string
	Logger       *logger.Logger
	Clock        func() time.Time
}

type service struct {
	tx           txRunner
	transactions TransactionSource
	rollups      Repository
	sink         RowSink
	sinkTable    string
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds the rollup service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transaction source required")
	}
	if params.Rollups == nil {
		return nil, fmt.Errorf("rollup repository required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:           params.Tx,
		transactions: params.Transactions,
		rollups:      params.Rollups,
		sink:         params.Sink,
		sinkTable:    strings.TrimSpace(params.SinkTable),
		logg:         params.Logger,
		now:          now,
	}, nil
}

func (s *service) Recompute(ctx context.Context, tenantID string) (*RecomputeResult, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	txns, err := s.transactions.ListByTenant(ctx, tenantID, transactions.ListFilter{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	rows := Compute(tenantID, txns, s.now())

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.rollups.WithTx(tx).Upsert(ctx, rows)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert rollups")
	}

	months := map[string]struct{}{}
	for _, row := range rows {
		months[row.Month] = struct{}{}
	}
	result := &RecomputeResult{TenantID: tenantID, Rows: len(rows), Months: len(months)}

	if s.sink != nil && s.sinkTable != "" && len(rows) > 0 {
		if err := s.sink.InsertRows(ctx, s.sinkTable, mirrorRows(rows)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mirror rollups").
				WithDetails(map[string]any{"table": s.sinkTable, "rows": len(rows)})
		}
		result.Mirrored = true
	}

	if s.logg != nil {
		logCtx := s.logg.WithTenantID(ctx, tenantID)
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"rows":     result.Rows,
			"months":   result.Months,
			"mirrored": result.Mirrored,
		}), "rollups.recompute.completed")
	}
	return result, nil
}

func (s *service) Insights(ctx context.Context, tenantID, month string) (*Insights, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	start, err := ParseMonth(month)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "month must be YYYY-MM").
			WithDetails(map[string]any{"month": month})
	}
	current := MonthOf(start)
	previous := PreviousMonth(start)

	rows, err := s.rollups.ListMonths(ctx, tenantID, current, previous)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rollups")
	}
	return buildInsights(tenantID, current, previous, rows), nil
}

func (s *service) List(ctx context.Context, tenantID string) ([]models.CategoryRollup, error) {
	rows, err := s.rollups.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rollups")
	}
	return rows, nil
}

func buildInsights(tenantID, current, previous string, rows []models.CategoryRollup) *Insights {
	out := &Insights{
		TenantID:      tenantID,
		Month:         current,
		PreviousMonth: previous,
		TotalSpent:    decimal.Zero,
		TotalIncome:   decimal.Zero,
		PreviousSpent: decimal.Zero,
		Categories:    []CategoryInsight{},
	}
	byCategory := map[string]*CategoryInsight{}
	get := func(id string) *CategoryInsight {
		ci, ok := byCategory[id]
		if !ok {
			ci = &CategoryInsight{
				CategoryID:    id,
				Spent:         decimal.Zero,
				Income:        decimal.Zero,
				PreviousSpent: decimal.Zero,
			}
			byCategory[id] = ci
		}
		return ci
	}
	for _, row := range rows {
		ci := get(row.CategoryID)
		switch row.Month {
		case current:
			ci.Spent = ci.Spent.Add(row.Spent)
			ci.Income = ci.Income.Add(row.Income)
			ci.TxnCount += row.TxnCount
			out.TotalSpent = out.TotalSpent.Add(row.Spent)
			out.TotalIncome = out.TotalIncome.Add(row.Income)
		case previous:
			ci.PreviousSpent = ci.PreviousSpent.Add(row.Spent)
			out.PreviousSpent = out.PreviousSpent.Add(row.Spent)
		}
	}
	for _, ci := range byCategory {
		ci.DeltaSpent = ci.Spent.Sub(ci.PreviousSpent)
		out.Categories = append(out.Categories, *ci)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		a, b := out.Categories[i], out.Categories[j]
		if !a.Spent.Equal(b.Spent) {
			return a.Spent.GreaterThan(b.Spent)
		}
		return a.CategoryID < b.CategoryID
	})
	out.DeltaSpent = out.TotalSpent.Sub(out.PreviousSpent)
	return out
}
