package rules

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// Repository persists tenant rules.
type Repository interface {
	List(ctx context.Context, tenantID string) ([]models.Rule, error)
	Create(ctx context.Context, rule *models.Rule) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// List returns the tenant's rules in evaluation order.
func (r *repository) List(ctx context.Context, tenantID string) ([]models.Rule, error) {
	var rows []models.Rule
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("priority ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Create(ctx context.Context, rule *models.Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rule).Error
}
