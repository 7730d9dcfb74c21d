package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements financing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: tx}
}

func preloadAllocations(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// FindByID loads a payment with its allocations
func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*financing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Preload("Allocations", preloadAllocations).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFinancing lists the payments of a financing with pagination
func (r *GormPaymentRepository) FindByFinancing(ctx context.Context, tenantID, financingID uuid.UUID, filter financing.PaymentFilter) ([]financing.Payment, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Scopes(TenantScope(tenantID)).
		Where("financing_id = ?", financingID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, PaymentSortFields, "operation_date")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.
		Preload("Allocations", preloadAllocations).
		Order(fmt.Sprintf("%s %s, created_at %s", sortField, sortOrder, sortOrder))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	var rows []models.PaymentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]financing.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, total, nil
}

// FindActiveOperationKeys returns the bank operations of non-cancelled payments
func (r *GormPaymentRepository) FindActiveOperationKeys(ctx context.Context, financingID uuid.UUID) ([]financing.OperationKey, error) {
	var rows []struct {
		CodeOperation string
		Reference     string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("code_operation, reference").
		Where("financing_id = ? AND status = ? AND code_operation <> ''", financingID, financing.PaymentStatusActive).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	keys := make([]financing.OperationKey, len(rows))
	for i, row := range rows {
		keys[i] = financing.OperationKey{CodeOperation: row.CodeOperation, Reference: row.Reference}
	}
	return keys, nil
}

// Create inserts payments with their allocations
func (r *GormPaymentRepository) Create(ctx context.Context, payments ...*financing.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	rows := make([]*models.PaymentModel, len(payments))
	for i, p := range payments {
		rows[i] = models.PaymentModelFromDomain(p)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// Update writes the mutable payment fields. Allocations are immutable and
// stay as recorded, including after cancellation.
func (r *GormPaymentRepository) Update(ctx context.Context, p *financing.Payment) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND tenant_id = ?", p.ID, p.TenantID).
		Updates(map[string]any{
			"status":        string(p.Status),
			"cancel_reason": p.CancelReason,
			"cancelled_at":  p.CancelledAt,
			"observation":   p.Observation,
			"updated_at":    p.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ financing.PaymentRepository = (*GormPaymentRepository)(nil)
