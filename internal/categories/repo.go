package categories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// Repository persists tenant categories.
type Repository interface {
	List(ctx context.Context, tenantID string) ([]models.Category, error)
	InsertIfAbsent(ctx context.Context, rows []models.Category) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, tenantID string) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertIfAbsent keeps existing (tenant_id, id) rows untouched.
func (r *repository) InsertIfAbsent(ctx context.Context, rows []models.Category) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
