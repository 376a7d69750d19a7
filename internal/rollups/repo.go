package rollups

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgdb "github.com/angelmondragon/moneypilot-backend/pkg/db"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// Repository persists category rollups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, rows []models.CategoryRollup) error
	ListMonths(ctx context.Context, tenantID string, months ...string) ([]models.CategoryRollup, error)
	ListByTenant(ctx context.Context, tenantID string) ([]models.CategoryRollup, error)
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

// Upsert writes one row per (tenant_id, month, category_id).
func (r *repository) Upsert(ctx context.Context, rows []models.CategoryRollup) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "month"}, {Name: "category_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"spent", "income", "txn_count", "updated_at"}),
		}).
		CreateInBatches(&rows, pkgdb.WriteBatchSize).Error
}

func (r *repository) ListMonths(ctx context.Context, tenantID string, months ...string) ([]models.CategoryRollup, error) {
	var rows []models.CategoryRollup
	if len(months) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND month IN ?", tenantID, months).
		Order("month ASC").
		Order("category_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID string) ([]models.CategoryRollup, error) {
	var rows []models.CategoryRollup
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("month ASC").
		Order("category_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
