package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/realestate/backend/internal/domain/financing"
)

// GormUnitOfWork runs financing work inside one database transaction
type GormUnitOfWork struct {
	db         *gorm.DB
	financings *GormFinancingRepository
	payments   *GormPaymentRepository
	amendments *GormAmendmentRepository
}

// NewGormUnitOfWork creates a unit of work over db
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{
		db:         db,
		financings: NewGormFinancingRepository(db),
		payments:   NewGormPaymentRepository(db),
		amendments: NewGormAmendmentRepository(db),
	}
}

// Do runs fn with repositories bound to a new transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(repos financing.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(financing.Repositories{
			Financings: u.financings.WithTx(tx),
			Payments:   u.payments.WithTx(tx),
			Amendments: u.amendments.WithTx(tx),
		})
	})
}

// Repositories returns repositories bound to the base connection, for reads
func (u *GormUnitOfWork) Repositories() financing.Repositories {
	return financing.Repositories{
		Financings: u.financings,
		Payments:   u.payments,
		Amendments: u.amendments,
	}
}

var _ financing.UnitOfWork = (*GormUnitOfWork)(nil)
