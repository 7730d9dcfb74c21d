package financing

import (
	"context"

	"github.com/google/uuid"

	"github.com/realestate/backend/internal/domain/shared"
)

// FinancingRepository persists financings together with their installments
type FinancingRepository interface {
	// FindByID loads a financing and all of its installments
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Financing, error)
	FindBySaleID(ctx context.Context, tenantID, saleID uuid.UUID) (*Financing, error)
	Create(ctx context.Context, f *Financing) error
	// SaveWithLock writes the financing and the given installments. It fails
	// with CONCURRENCY_CONFLICT when the stored version is not Version-1.
	SaveWithLock(ctx context.Context, f *Financing, changed []*Installment) error
	DeleteInstallments(ctx context.Context, ids []uuid.UUID) error
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	shared.Filter
	Status PaymentStatus
	Kind   PaymentKind
}

// PaymentRepository persists payments and their allocations
type PaymentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindByFinancing(ctx context.Context, tenantID, financingID uuid.UUID, filter PaymentFilter) ([]Payment, int64, error)
	// FindActiveOperationKeys returns the bank operations of non-cancelled payments
	FindActiveOperationKeys(ctx context.Context, financingID uuid.UUID) ([]OperationKey, error)
	Create(ctx context.Context, payments ...*Payment) error
	Update(ctx context.Context, p *Payment) error
}

// AmendmentRepository persists amendment audit records
type AmendmentRepository interface {
	Create(ctx context.Context, a *Amendment) error
	FindByFinancing(ctx context.Context, tenantID, financingID uuid.UUID) ([]Amendment, error)
}

// Repositories is the set of repositories bound to one transaction
type Repositories struct {
	Financings FinancingRepository
	Payments   PaymentRepository
	Amendments AmendmentRepository
}

// UnitOfWork runs fn inside a single transaction. Returning an error from fn
// rolls back every write made through the given repositories.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}
