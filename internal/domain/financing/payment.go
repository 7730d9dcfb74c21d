package financing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/shared"
)

// PaymentKind distinguishes manually registered payments from bank batches
type PaymentKind string

const (
	PaymentKindManual       PaymentKind = "MANUAL"
	PaymentKindAutoApproved PaymentKind = "AUTO_APPROVED"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusActive    PaymentStatus = "ACTIVE"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a known value
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusActive || s == PaymentStatusCancelled
}

// Allocation links a payment to the installment it paid
type Allocation struct {
	ID               uuid.UUID
	PaymentID        uuid.UUID
	InstallmentID    uuid.UUID
	Stream           StreamKind
	Number           int
	PrincipalApplied decimal.Decimal
	LateFeeApplied   decimal.Decimal
}

// Total returns principal plus late fee applied
func (a Allocation) Total() decimal.Decimal {
	return a.PrincipalApplied.Add(a.LateFeeApplied)
}

// OperationKey identifies a bank operation
type OperationKey struct {
	CodeOperation string
	Reference     string
}

func newOperationKey(code, ref string) OperationKey {
	return OperationKey{CodeOperation: strings.TrimSpace(code), Reference: strings.TrimSpace(ref)}
}

// Payment is an inbound monetary event applied to a financing
type Payment struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	FinancingID   uuid.UUID
	Kind          PaymentKind
	Status        PaymentStatus
	Amount        decimal.Decimal
	Unapplied     decimal.Decimal
	OperationDate time.Time
	Reference     string
	CodeOperation string
	BankName      string
	FileIndex     *int
	BatchID       *uuid.UUID
	Observation   string
	CancelReason  string
	CancelledAt   *time.Time
	CreatedBy     *uuid.UUID
	Allocations   []Allocation
}

// PaymentInput describes a payment to register
type PaymentInput struct {
	Amount        decimal.Decimal
	OperationDate time.Time
	Reference     string
	CodeOperation string
	BankName      string
	Observation   string
}

// IsCentAmount reports whether d has at most 2 decimal places
func IsCentAmount(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// NewManualPayment creates an ad-hoc payment; reference and operation code are optional
func NewManualPayment(tenantID, financingID uuid.UUID, in PaymentInput) (*Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Payment amount must be positive")
	}
	if !IsCentAmount(in.Amount) {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Payment amount cannot have more than 2 decimal places")
	}
	if in.OperationDate.IsZero() {
		return nil, shared.NewDomainError(CodeInvalidPayment, "Operation date is required")
	}
	return &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		FinancingID:   financingID,
		Kind:          PaymentKindManual,
		Status:        PaymentStatusActive,
		Amount:        in.Amount,
		Unapplied:     decimal.Zero,
		OperationDate: NormalizeDate(in.OperationDate),
		Reference:     strings.TrimSpace(in.Reference),
		CodeOperation: strings.TrimSpace(in.CodeOperation),
		BankName:      strings.TrimSpace(in.BankName),
		Observation:   in.Observation,
	}, nil
}

// IsCancelled reports whether the payment was reversed
func (p *Payment) IsCancelled() bool {
	return p.Status == PaymentStatusCancelled
}

// TotalAllocated sums the allocations of the payment
func (p *Payment) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Total())
	}
	return total
}

// OperationKey returns the bank operation identity of the payment
func (p *Payment) OperationKey() OperationKey {
	return newOperationKey(p.CodeOperation, p.Reference)
}

// InstallmentIDs returns the distinct installments the payment touched
func (p *Payment) InstallmentIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(p.Allocations))
	ids := make([]uuid.UUID, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		if !seen[a.InstallmentID] {
			seen[a.InstallmentID] = true
			ids = append(ids, a.InstallmentID)
		}
	}
	return ids
}

func (p *Payment) attach(allocations []Allocation) {
	for i := range allocations {
		allocations[i].ID = uuid.New()
		allocations[i].PaymentID = p.ID
	}
	p.Allocations = allocations
	p.Unapplied = p.Amount.Sub(p.TotalAllocated())
}
