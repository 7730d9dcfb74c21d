package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/infrastructure/persistence/models"
)

// GormAmendmentRepository implements financing.AmendmentRepository using GORM
type GormAmendmentRepository struct {
	db *gorm.DB
}

// NewGormAmendmentRepository creates a new GormAmendmentRepository
func NewGormAmendmentRepository(db *gorm.DB) *GormAmendmentRepository {
	return &GormAmendmentRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormAmendmentRepository) WithTx(tx *gorm.DB) *GormAmendmentRepository {
	return &GormAmendmentRepository{db: tx}
}

// Create inserts an amendment audit record
func (r *GormAmendmentRepository) Create(ctx context.Context, a *financing.Amendment) error {
	return r.db.WithContext(ctx).Create(models.AmendmentModelFromDomain(a)).Error
}

// FindByFinancing lists the amendments of a financing, newest first
func (r *GormAmendmentRepository) FindByFinancing(ctx context.Context, tenantID, financingID uuid.UUID) ([]financing.Amendment, error) {
	var rows []models.AmendmentModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("financing_id = ?", financingID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]financing.Amendment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var _ financing.AmendmentRepository = (*GormAmendmentRepository)(nil)
