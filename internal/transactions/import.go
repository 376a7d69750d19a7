package transactions

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/moneypilot-backend/internal/rules"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

// DefaultCurrency applies when an import names no currency.
const DefaultCurrency = "USD"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RuleSource lists a tenant's rules.
type RuleSource interface {
	List(ctx context.Context, tenantID string) ([]models.Rule, error)
}

// AccountSource resolves a tenant's account. Unknown accounts must surface as
// a not-found error.
type AccountSource interface {
	Get(ctx context.Context, tenantID, accountID string) (*models.Account, error)
}

// ImportParams identifies the target account of a CSV upload.
type ImportParams struct {
	TenantID  string
	AccountID string
	Currency  string
	Body      io.Reader
}

// ImportResult summarises an import.
type ImportResult struct {
	Rows         int `json:"rows"`
	Inserted     int `json:"inserted"`
	Duplicates   int `json:"duplicates"`
	Categorized  int `json:"categorized"`
	RulesApplied int `json:"rules_applied"`
}

// ImportService loads bank CSV exports.
type ImportService interface {
	Import(ctx context.Context, params ImportParams) (*ImportResult, error)
}

type importService struct {
	tx       txRunner
	repo     Repository
	rules    RuleSource
	accounts AccountSource
	logg     *logger.Logger
}

// NewImportService builds the import service. ruleSource, accountSource and
// logg may be nil; without an account source the target account is not
// checked.
func NewImportService(tx txRunner, repo Repository, ruleSource RuleSource, accountSource AccountSource, logg *logger.Logger) (ImportService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	return &importService{tx: tx, repo: repo, rules: ruleSource, accounts: accountSource, logg: logg}, nil
}

func (s *importService) Import(ctx context.Context, params ImportParams) (*ImportResult, error) {
	params.TenantID = strings.TrimSpace(params.TenantID)
	params.AccountID = strings.TrimSpace(params.AccountID)
	if params.TenantID == "" || params.AccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and account id are required")
	}
	if params.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "csv body required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if s.accounts != nil {
		account, err := s.accounts.Get(ctx, params.TenantID, params.AccountID)
		if err != nil {
			return nil, err
		}
		params.AccountID = account.ID.String()
		if currency == "" {
			currency = account.Currency
		}
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	parsed, err := ParseCSV(params.Body)
	if err != nil {
		return nil, err
	}

	var tenantRules []models.Rule
	if s.rules != nil {
		tenantRules, err = s.rules.List(ctx, params.TenantID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rules")
		}
	}

	result := &ImportResult{Rows: len(parsed)}
	seen := make(map[string]struct{}, len(parsed))
	batch := make([]models.Transaction, 0, len(parsed))
	for _, row := range parsed {
		txn, matched := buildTransaction(params.TenantID, params.AccountID, currency, row, tenantRules)
		if _, dup := seen[txn.DedupeHash]; dup {
			continue
		}
		seen[txn.DedupeHash] = struct{}{}
		if matched {
			result.RulesApplied++
		}
		if txn.CategoryID != nil {
			result.Categorized++
		}
		batch = append(batch, txn)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inserted, err := s.repo.WithTx(tx).InsertIfAbsent(ctx, batch)
		if err != nil {
			return err
		}
		result.Inserted = inserted
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert transactions")
	}
	result.Duplicates = result.Rows - result.Inserted

	if s.logg != nil {
		logCtx := s.logg.WithTenantID(ctx, params.TenantID)
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"account_id": params.AccountID,
			"rows":       result.Rows,
			"inserted":   result.Inserted,
			"duplicates": result.Duplicates,
		}), "transactions.import.completed")
	}
	return result, nil
}

// buildTransaction normalises one row. The dedupe hash is taken before rules
// run so that editing rules never re-imports a line.
func buildTransaction(tenantID, accountID, currency string, row CSVRow, tenantRules []models.Rule) (models.Transaction, bool) {
	var desc *string
	if row.Description != "" {
		d := row.Description
		desc = &d
	}
	merchant := NormalizeMerchant(row.Description)
	category, confidence := HeuristicCategory(row.Description)

	txn := models.Transaction{
		TenantID:           tenantID,
		AccountID:          accountID,
		PostedAt:           row.PostedAt,
		Amount:             row.Amount.Round(2),
		Currency:           currency,
		Merchant:           merchant,
		DescriptionRaw:     desc,
		CategoryID:         category,
		CategoryConfidence: confidence,
		DedupeHash:         DedupeHash(accountID, row.PostedAt, row.Amount, merchant, desc),
	}
	out, rule := rules.Evaluate(tenantRules, txn)
	return out, rule != nil
}
