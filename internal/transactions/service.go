package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/moneypilot-backend/internal/accounts"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

const (
	// DefaultListLimit caps GET /transactions when no limit is given.
	DefaultListLimit = 50
	// MaxListLimit bounds caller-supplied limits.
	MaxListLimit = 500
)

// ListInput filters the transaction listing. Empty fields are ignored.
type ListInput struct {
	AccountID  string
	CategoryID string
	Limit      int
}

// CreateInput describes a manually entered transaction. Amount is a
// magnitude; Type decides the sign.
type CreateInput struct {
	AccountID   string
	PostedAt    time.Time
	Amount      decimal.Decimal
	Type        string
	Description string
	CategoryID  string
}

// Service lists transactions and books manual entries.
type Service interface {
	List(ctx context.Context, tenantID string, input ListInput) ([]models.Transaction, error)
	Create(ctx context.Context, tenantID string, input CreateInput) (*models.Transaction, error)
}

// ServiceParams wires the transaction service. Rules and Logger are optional.
type ServiceParams struct {
	Tx       txRunner
	Repo     Repository
	Accounts accounts.Repository
	Rules    RuleSource
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	tx       txRunner
	repo     Repository
	accounts accounts.Repository
	rules    RuleSource
	logg     *logger.Logger
	clock    func() time.Time
}

// NewService builds the transaction service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account repository required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		accounts: params.Accounts,
		rules:    params.Rules,
		logg:     params.Logger,
		clock:    clock,
	}, nil
}

// List returns the newest transactions first.
func (s *service) List(ctx context.Context, tenantID string, input ListInput) ([]models.Transaction, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	limit := input.Limit
	switch {
	case limit < 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must not be negative")
	case limit == 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	rows, err := s.repo.ListByTenant(ctx, tenantID, ListFilter{
		AccountID:  strings.TrimSpace(input.AccountID),
		CategoryID: strings.TrimSpace(input.CategoryID),
		Limit:      limit,
		Newest:     true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	if rows == nil {
		rows = []models.Transaction{}
	}
	return rows, nil
}

// Create books a manual transaction and moves the account balance by the
// signed amount in the same database transaction.
func (s *service) Create(ctx context.Context, tenantID string, input CreateInput) (*models.Transaction, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	problems := map[string]string{}
	kind, typeErr := enums.ParseTransactionType(strings.ToLower(strings.TrimSpace(input.Type)))
	if typeErr != nil {
		problems["transaction_type"] = "must be debit or credit"
	}
	magnitude := input.Amount.Abs().Round(2)
	if magnitude.IsZero() {
		problems["amount"] = "must be non-zero"
	}
	desc := strings.TrimSpace(input.Description)
	if desc == "" {
		problems["description"] = "required"
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction").WithDetails(problems)
	}
	accountID, err := accounts.ParseID(input.AccountID)
	if err != nil {
		return nil, err
	}

	amount := magnitude
	if kind == enums.TransactionTypeDebit {
		amount = magnitude.Neg()
	}
	postedAt := input.PostedAt
	if postedAt.IsZero() {
		postedAt = s.clock()
	}
	postedAt = postedAt.UTC()

	var tenantRules []models.Rule
	if s.rules != nil {
		if tenantRules, err = s.rules.List(ctx, tenantID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rules")
		}
	}

	var created models.Transaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		accountRepo := s.accounts.WithTx(tx)
		account, err := accountRepo.Get(ctx, tenantID, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
		}

		row := CSVRow{PostedAt: postedAt, Amount: amount, Description: desc}
		txn, _ := buildTransaction(tenantID, account.ID.String(), account.Currency, row, tenantRules)
		if id := strings.TrimSpace(input.CategoryID); id != "" {
			txn.CategoryID = &id
			txn.CategoryConfidence = 1.0
		}

		batch := []models.Transaction{txn}
		inserted, err := s.repo.WithTx(tx).InsertIfAbsent(ctx, batch)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert transaction")
		}
		if inserted == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "duplicate transaction")
		}
		if err := accountRepo.AdjustBalance(ctx, tenantID, accountID, amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust account balance")
		}
		created = batch[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithTenantID(ctx, tenantID)
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"account_id":     created.AccountID,
			"transaction_id": created.ID.String(),
			"amount":         created.Amount.String(),
		}), "transactions.create.completed")
	}
	return &created, nil
}
