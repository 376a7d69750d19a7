// Package dashboard summarises a tenant's balances and current-month spending.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/internal/accounts"
	"github.com/angelmondragon/moneypilot-backend/internal/rollups"
	"github.com/angelmondragon/moneypilot-backend/internal/transactions"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
)

// RecentLimit is the number of transactions shown on the dashboard.
const RecentLimit = 10

// AccountLister lists a tenant's accounts.
type AccountLister interface {
	List(ctx context.Context, tenantID string) ([]models.Account, error)
}

// TransactionSource reads a tenant's transactions.
type TransactionSource interface {
	ListByTenant(ctx context.Context, tenantID string, filter transactions.ListFilter) ([]models.Transaction, error)
}

// CategorySpend is one category's debit total for the month.
type CategorySpend struct {
	CategoryID string          `json:"category_id"`
	Spent      decimal.Decimal `json:"spent"`
	TxnCount   int             `json:"txn_count"`
}

// Summary is the dashboard payload.
type Summary struct {
	TenantID           string                        `json:"tenant_id"`
	Month              string                        `json:"month"`
	TotalBalance       decimal.Decimal               `json:"total_balance"`
	MonthlySpending    decimal.Decimal               `json:"monthly_spending"`
	CategorySpending   []CategorySpend               `json:"category_spending"`
	Accounts           []accounts.AccountDTO         `json:"accounts"`
	RecentTransactions []transactions.TransactionDTO `json:"recent_transactions"`
}

// Service builds dashboard summaries.
type Service interface {
	Summary(ctx context.Context, tenantID string) (*Summary, error)
}

type service struct {
	accounts     AccountLister
	transactions TransactionSource
	clock        func() time.Time
}

// NewService builds the dashboard service. A nil clock uses time.Now.
func NewService(accountLister AccountLister, txns TransactionSource, clock func() time.Time) (Service, error) {
	if accountLister == nil {
		return nil, fmt.Errorf("account lister required")
	}
	if txns == nil {
		return nil, fmt.Errorf("transaction source required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &service{accounts: accountLister, transactions: txns, clock: clock}, nil
}

func (s *service) Summary(ctx context.Context, tenantID string) (*Summary, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	accts, err := s.accounts.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, a := range accts {
		total = total.Add(a.Balance)
	}

	now := s.clock().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthTxns, err := s.transactions.ListByTenant(ctx, tenantID, transactions.ListFilter{
		From: monthStart,
		To:   monthStart.AddDate(0, 1, 0),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list month transactions")
	}
	recent, err := s.transactions.ListByTenant(ctx, tenantID, transactions.ListFilter{
		Limit:  RecentLimit,
		Newest: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent transactions")
	}

	spending := decimal.Zero
	byCategory := make([]CategorySpend, 0)
	for _, row := range rollups.Compute(tenantID, monthTxns, now) {
		if row.Spent.IsZero() {
			continue
		}
		spending = spending.Add(row.Spent)
		byCategory = append(byCategory, CategorySpend{
			CategoryID: row.CategoryID,
			Spent:      row.Spent,
			TxnCount:   row.TxnCount,
		})
	}
	sort.SliceStable(byCategory, func(i, j int) bool {
		return byCategory[i].Spent.GreaterThan(byCategory[j].Spent)
	})

	return &Summary{
		TenantID:           tenantID,
		Month:              rollups.MonthOf(monthStart),
		TotalBalance:       total,
		MonthlySpending:    spending,
		CategorySpending:   byCategory,
		Accounts:           accounts.NewAccountDTOs(accts),
		RecentTransactions: transactions.NewTransactionDTOs(recent),
	}, nil
}
