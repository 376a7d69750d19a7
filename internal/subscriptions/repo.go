package subscriptions

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgdb "github.com/angelmondragon/moneypilot-backend/pkg/db"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
)

// Columns rewritten on every detection pass. id and created_at keep their
// first-insert values.
var derivedColumns = []string{
	"cadence",
	"avg_amount",
	"last_seen_at",
	"next_expected_at",
	"confidence",
	"status",
	"observations",
	"avg_gap_days",
}

// CandidateRepository persists subscription candidates.
type CandidateRepository interface {
	WithTx(tx *gorm.DB) CandidateRepository
	UpsertCandidates(ctx context.Context, tenantID string, rows []models.SubscriptionCandidate) ([]models.SubscriptionCandidate, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.SubscriptionCandidate, error)
}

type candidateRepository struct {
	db *gorm.DB
}

// NewCandidateRepository returns a repository bound to the provided database.
func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) WithTx(tx *gorm.DB) CandidateRepository {
	if tx == nil {
		return r
	}
	return &candidateRepository{db: tx}
}

// UpsertCandidates writes one row per (tenant_id, merchant_normalized) and
// returns the stored rows ordered by merchant.
func (r *candidateRepository) UpsertCandidates(ctx context.Context, tenantID string, rows []models.SubscriptionCandidate) ([]models.SubscriptionCandidate, error) {
	if len(rows) == 0 {
		return []models.SubscriptionCandidate{}, nil
	}

	merchants := make([]string, 0, len(rows))
	toWrite := make([]models.SubscriptionCandidate, len(rows))
	for i, row := range rows {
		row.TenantID = tenantID
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		toWrite[i] = row
		merchants = append(merchants, row.MerchantNormalized)
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "merchant_normalized"}},
			DoUpdates: clause.AssignmentColumns(derivedColumns),
		}).
		CreateInBatches(&toWrite, pkgdb.WriteBatchSize).Error
	if err != nil {
		return nil, err
	}

	stored := make([]models.SubscriptionCandidate, 0, len(rows))
	for _, chunk := range pkgdb.Chunk(merchants, pkgdb.WriteBatchSize) {
		var part []models.SubscriptionCandidate
		err = r.db.WithContext(ctx).
			Where("tenant_id = ? AND merchant_normalized IN ?", tenantID, chunk).
			Find(&part).Error
		if err != nil {
			return nil, err
		}
		stored = append(stored, part...)
	}
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].MerchantNormalized < stored[j].MerchantNormalized
	})
	return stored, nil
}

func (r *candidateRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.SubscriptionCandidate, error) {
	var rows []models.SubscriptionCandidate
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("merchant_normalized ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
