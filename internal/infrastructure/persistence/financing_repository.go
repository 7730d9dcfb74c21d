package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/persistence/models"
)

// GormFinancingRepository implements financing.FinancingRepository using GORM
type GormFinancingRepository struct {
	db *gorm.DB
}

// NewGormFinancingRepository creates a new GormFinancingRepository
func NewGormFinancingRepository(db *gorm.DB) *GormFinancingRepository {
	return &GormFinancingRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormFinancingRepository) WithTx(tx *gorm.DB) *GormFinancingRepository {
	return &GormFinancingRepository{db: tx}
}

func preloadInstallments(db *gorm.DB) *gorm.DB {
	return db.Order("due_date ASC, stream ASC, number ASC")
}

// FindByID loads a financing with all of its installments
func (r *GormFinancingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*financing.Financing, error) {
	var model models.FinancingModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Preload("Installments", preloadInstallments).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySaleID loads the financing of a sale
func (r *GormFinancingRepository) FindBySaleID(ctx context.Context, tenantID, saleID uuid.UUID) (*financing.Financing, error) {
	var model models.FinancingModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Preload("Installments", preloadInstallments).
		First(&model, "sale_id = ?", saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new financing and its installments
func (r *GormFinancingRepository) Create(ctx context.Context, f *financing.Financing) error {
	model := models.FinancingModelFromDomain(f)
	model.Installments = models.InstallmentModelsFromDomain(f.Installments)
	err := r.db.WithContext(ctx).Create(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// SaveWithLock updates the financing header guarded by its version, then
// upserts the changed installments. The aggregate must already carry the
// incremented version.
func (r *GormFinancingRepository) SaveWithLock(ctx context.Context, f *financing.Financing, changed []*financing.Installment) error {
	model := models.FinancingModelFromDomain(f)
	result := r.db.WithContext(ctx).
		Model(&models.FinancingModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", f.ID, f.TenantID, f.Version-1).
		Updates(map[string]any{
			"version":      model.Version,
			"total_amount": model.TotalAmount,
			"hu_terms":     model.HuTerms,
			"lot_terms":    model.LotTerms,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	if len(changed) == 0 {
		return nil
	}

	rows := models.InstallmentModelsFromDomain(changed)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"due_date", "due_amount", "principal_portion", "interest_portion",
				"amount_paid", "late_fee_accrued", "late_fee_paid", "status", "updated_at",
			}),
		}).
		Create(&rows).Error
}

// DeleteInstallments removes installments dropped by an amendment
func (r *GormFinancingRepository) DeleteInstallments(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.InstallmentModel{}).Error
}

// FindOverdueInstallments returns unpaid installments due before asOf across
// all tenants, oldest first.
func (r *GormFinancingRepository) FindOverdueInstallments(ctx context.Context, asOf time.Time, limit int) ([]*financing.Installment, error) {
	var rows []models.InstallmentModel
	query := r.db.WithContext(ctx).
		Where("due_date < ? AND status <> ?", financing.NormalizeDate(asOf), financing.InstallmentStatusPaid).
		Order("due_date ASC, financing_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*financing.Installment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ financing.FinancingRepository = (*GormFinancingRepository)(nil)
