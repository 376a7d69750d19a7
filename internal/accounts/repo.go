package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// Repository persists tenant accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, tenantID string) ([]models.Account, error)
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, tenantID string, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	CountTransactions(ctx context.Context, tenantID string, id uuid.UUID) (int64, error)
	AdjustBalance(ctx context.Context, tenantID string, id uuid.UUID, delta decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, tenantID string) ([]models.Account, error) {
	var rows []models.Account
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns gorm.ErrRecordNotFound when the account is missing or owned by
// another tenant.
func (r *repository) Get(ctx context.Context, tenantID string, id uuid.UUID) (*models.Account, error) {
	var row models.Account
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) Update(ctx context.Context, tenantID string, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountTransactions counts transactions booked against the account.
func (r *repository) CountTransactions(ctx context.Context, tenantID string, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, id.String()).
		Count(&n).Error
	return n, err
}

// AdjustBalance adds delta to the stored balance in a single statement.
func (r *repository) AdjustBalance(ctx context.Context, tenantID string, id uuid.UUID, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("balance", gorm.Expr("balance + ?", delta.Round(2)))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
