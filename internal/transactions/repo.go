package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgdb "github.com/angelmondragon/moneypilot-backend/pkg/db"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// Repository reads and writes tenant transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListDebits(ctx context.Context, tenantID string) ([]models.Transaction, error)
	ListByTenant(ctx context.Context, tenantID string, filter ListFilter) ([]models.Transaction, error)
	InsertIfAbsent(ctx context.Context, rows []models.Transaction) (int, error)
	ListTenantIDs(ctx context.Context) ([]string, error)
}

// ListFilter narrows ListByTenant. Zero values mean unbounded.
type ListFilter struct {
	From       time.Time
	To         time.Time
	AccountID  string
	CategoryID string
	Limit      int
	// Newest orders by posting time descending.
	Newest bool
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

// ListDebits returns the tenant's debits ordered by posting time.
func (r *repository) ListDebits(ctx context.Context, tenantID string) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND amount < 0", tenantID).
		Order("posted_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID string, filter ListFilter) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if !filter.From.IsZero() {
		query = query.Where("posted_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("posted_at < ?", filter.To)
	}
	if filter.AccountID != "" {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Newest {
		query = query.Order("posted_at DESC").Order("id DESC")
	} else {
		query = query.Order("posted_at ASC").Order("id ASC")
	}
	var rows []models.Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertIfAbsent writes rows whose (tenant_id, account_id, dedupe_hash) is
// not stored yet and reports how many were inserted. Rows are written in
// batches so large imports stay under the driver's bind-parameter limit.
func (r *repository) InsertIfAbsent(ctx context.Context, rows []models.Transaction) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "account_id"}, {Name: "dedupe_hash"}},
			DoNothing: true,
		}).
		CreateInBatches(&rows, pkgdb.WriteBatchSize)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// ListTenantIDs returns every tenant that owns at least one transaction.
func (r *repository) ListTenantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Distinct("tenant_id").
		Order("tenant_id ASC").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
