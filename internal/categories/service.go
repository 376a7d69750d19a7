package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
)

// Service serves the tenant category catalog.
type Service interface {
	List(ctx context.Context, tenantID string) ([]models.Category, error)
}

type service struct {
	repo Repository
}

// NewService builds the category service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{repo: repo}, nil
}

// List seeds the default catalog the first time a tenant asks for it.
func (s *service) List(ctx context.Context, tenantID string) ([]models.Category, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	rows, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	if len(rows) > 0 {
		return rows, nil
	}
	if _, err := s.repo.InsertIfAbsent(ctx, defaultRows(tenantID)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed categories")
	}
	rows, err = s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return rows, nil
}
