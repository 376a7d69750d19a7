package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
)

// DefaultCurrency applies when an account is opened without one.
const DefaultCurrency = "USD"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput describes a new account.
type CreateInput struct {
	Name           string
	AccountType    string
	BankName       string
	InitialBalance decimal.Decimal
	Currency       string
	Nickname       *string
	Description    *string
}

// UpdateInput carries the editable fields. Nil leaves a field unchanged and
// an empty Nickname or Description clears it.
type UpdateInput struct {
	Name        *string
	Nickname    *string
	Description *string
}

// Service manages tenant accounts.
type Service interface {
	List(ctx context.Context, tenantID string) ([]models.Account, error)
	Get(ctx context.Context, tenantID, accountID string) (*models.Account, error)
	Create(ctx context.Context, tenantID string, input CreateInput) (*models.Account, error)
	Update(ctx context.Context, tenantID, accountID string, input UpdateInput) (*models.Account, error)
	Delete(ctx context.Context, tenantID, accountID string) error
}

type service struct {
	tx   txRunner
	repo Repository
}

// NewService builds the account service.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) List(ctx context.Context, tenantID string) ([]models.Account, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accounts")
	}
	if rows == nil {
		rows = []models.Account{}
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, tenantID, accountID string) (*models.Account, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	id, err := ParseID(accountID)
	if err != nil {
		return nil, err
	}
	return loadAccount(ctx, s.repo, tenantID, id)
}

func (s *service) Create(ctx context.Context, tenantID string, input CreateInput) (*models.Account, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}

	problems := map[string]string{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		problems["name"] = "required"
	}
	bank := strings.TrimSpace(input.BankName)
	if bank == "" {
		problems["bank_name"] = "required"
	}
	accountType, typeErr := enums.ParseAccountType(strings.TrimSpace(input.AccountType))
	if typeErr != nil {
		problems["account_type"] = "must be checking, savings or credit_card"
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid account").WithDetails(problems)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	account := &models.Account{
		TenantID:    tenantID,
		Name:        name,
		AccountType: accountType,
		BankName:    bank,
		Balance:     input.InitialBalance.Round(2),
		Currency:    currency,
		Nickname:    trimmedOrNil(input.Nickname),
		Description: trimmedOrNil(input.Description),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	return account, nil
}

func (s *service) Update(ctx context.Context, tenantID, accountID string, input UpdateInput) (*models.Account, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	id, err := ParseID(accountID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid account").
				WithDetails(map[string]string{"name": "must not be empty"})
		}
		fields["name"] = name
	}
	if input.Nickname != nil {
		fields["nickname"] = trimmedOrNil(input.Nickname)
	}
	if input.Description != nil {
		fields["description"] = trimmedOrNil(input.Description)
	}

	var updated *models.Account
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadAccount(ctx, repo, tenantID, id); err != nil {
			return err
		}
		if err := repo.Update(ctx, tenantID, id, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account")
		}
		account, err := loadAccount(ctx, repo, tenantID, id)
		if err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete refuses to drop an account that still has transactions.
func (s *service) Delete(ctx context.Context, tenantID, accountID string) error {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return err
	}
	id, err := ParseID(accountID)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadAccount(ctx, repo, tenantID, id); err != nil {
			return err
		}
		n, err := repo.CountTransactions(ctx, tenantID, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count account transactions")
		}
		if n > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "account has transactions").
				WithDetails(map[string]any{"transactions": n})
		}
		if err := repo.Delete(ctx, tenantID, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete account")
		}
		return nil
	})
}

// ParseID validates an account id. Malformed ids are reported as not found.
func ParseID(accountID string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(accountID))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return id, nil
}

func loadAccount(ctx context.Context, repo Repository, tenantID string, id uuid.UUID) (*models.Account, error) {
	account, err := repo.Get(ctx, tenantID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

func requireTenant(tenantID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return tenantID, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
