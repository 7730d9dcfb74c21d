package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/financing"
)

// PaymentModel is the persistence model for a payment
type PaymentModel struct {
	TenantModel
	FinancingID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind          string          `gorm:"type:varchar(20);not null"`
	Status        string          `gorm:"type:varchar(20);not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Unapplied     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	OperationDate time.Time       `gorm:"type:date;not null"`
	Reference     string          `gorm:"type:varchar(100)"`
	CodeOperation string          `gorm:"type:varchar(100)"`
	BankName      string          `gorm:"type:varchar(100)"`
	FileIndex     *int
	BatchID       *uuid.UUID `gorm:"type:uuid;index"`
	Observation   string     `gorm:"type:text"`
	CancelReason  string     `gorm:"type:text"`
	CancelledAt   *time.Time
	CreatedBy     *uuid.UUID        `gorm:"type:uuid"`
	Allocations   []AllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "financing_payments"
}

// ToDomain converts the model and its preloaded allocations
func (m *PaymentModel) ToDomain() *financing.Payment {
	p := &financing.Payment{
		BaseEntity:    m.BaseModel.ToDomain(),
		TenantID:      m.TenantID,
		FinancingID:   m.FinancingID,
		Kind:          financing.PaymentKind(m.Kind),
		Status:        financing.PaymentStatus(m.Status),
		Amount:        m.Amount,
		Unapplied:     m.Unapplied,
		OperationDate: financing.NormalizeDate(m.OperationDate),
		Reference:     m.Reference,
		CodeOperation: m.CodeOperation,
		BankName:      m.BankName,
		FileIndex:     m.FileIndex,
		BatchID:       m.BatchID,
		Observation:   m.Observation,
		CancelReason:  m.CancelReason,
		CancelledAt:   m.CancelledAt,
		CreatedBy:     m.CreatedBy,
		Allocations:   make([]financing.Allocation, len(m.Allocations)),
	}
	for i, a := range m.Allocations {
		p.Allocations[i] = a.ToDomain()
	}
	return p
}

// PaymentModelFromDomain converts a domain payment with its allocations
func PaymentModelFromDomain(p *financing.Payment) *PaymentModel {
	m := &PaymentModel{
		TenantModel:   TenantModel{TenantID: p.TenantID},
		FinancingID:   p.FinancingID,
		Kind:          string(p.Kind),
		Status:        string(p.Status),
		Amount:        p.Amount,
		Unapplied:     p.Unapplied,
		OperationDate: p.OperationDate,
		Reference:     p.Reference,
		CodeOperation: p.CodeOperation,
		BankName:      p.BankName,
		FileIndex:     p.FileIndex,
		BatchID:       p.BatchID,
		Observation:   p.Observation,
		CancelReason:  p.CancelReason,
		CancelledAt:   p.CancelledAt,
		CreatedBy:     p.CreatedBy,
		Allocations:   make([]AllocationModel, len(p.Allocations)),
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	for i, a := range p.Allocations {
		m.Allocations[i] = AllocationModelFromDomain(a, p.CreatedAt)
		m.Allocations[i].Sequence = i
	}
	return m
}

// AllocationModel is one payment-to-installment application. Sequence keeps
// the allocation order of the payment.
type AllocationModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PaymentID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	InstallmentID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Stream           string          `gorm:"type:varchar(20);not null"`
	Number           int             `gorm:"not null"`
	Sequence         int             `gorm:"not null"`
	PrincipalApplied decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LateFeeApplied   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "financing_payment_allocations"
}

// ToDomain converts the model to a domain allocation
func (m AllocationModel) ToDomain() financing.Allocation {
	return financing.Allocation{
		ID:               m.ID,
		PaymentID:        m.PaymentID,
		InstallmentID:    m.InstallmentID,
		Stream:           financing.StreamKind(m.Stream),
		Number:           m.Number,
		PrincipalApplied: m.PrincipalApplied,
		LateFeeApplied:   m.LateFeeApplied,
	}
}

// AllocationModelFromDomain converts a domain allocation
func AllocationModelFromDomain(a financing.Allocation, createdAt time.Time) AllocationModel {
	return AllocationModel{
		ID:               a.ID,
		PaymentID:        a.PaymentID,
		InstallmentID:    a.InstallmentID,
		Stream:           string(a.Stream),
		Number:           a.Number,
		PrincipalApplied: a.PrincipalApplied,
		LateFeeApplied:   a.LateFeeApplied,
		CreatedAt:        createdAt,
	}
}
