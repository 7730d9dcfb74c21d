package financing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/shared"
)

// StreamKind identifies the financing stream an installment belongs to
type StreamKind string

const (
	StreamLot              StreamKind = "LOT"
	StreamUrbanDevelopment StreamKind = "URBAN_DEVELOPMENT"
)

// IsValid checks if the stream kind is known
func (s StreamKind) IsValid() bool {
	return s == StreamLot || s == StreamUrbanDevelopment
}

func (s StreamKind) String() string {
	return string(s)
}

// rank orders LOT before URBAN_DEVELOPMENT when due dates tie
func (s StreamKind) rank() int {
	if s == StreamLot {
		return 0
	}
	return 1
}

// InstallmentStatus represents the status of an installment
type InstallmentStatus string

const (
	InstallmentStatusPending       InstallmentStatus = "PENDING"
	InstallmentStatusPartiallyPaid InstallmentStatus = "PARTIALLY_PAID"
	InstallmentStatusPaid          InstallmentStatus = "PAID"
	// InstallmentStatusExpired is only ever derived at read time
	InstallmentStatusExpired InstallmentStatus = "EXPIRED"
)

// IsValid checks if the status is a known value
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusPending, InstallmentStatusPartiallyPaid, InstallmentStatusPaid, InstallmentStatusExpired:
		return true
	}
	return false
}

func (s InstallmentStatus) String() string {
	return string(s)
}

// Installment is one scheduled obligation of a financing stream.
// A zero ID means the installment has not been persisted yet.
type Installment struct {
	shared.BaseEntity
	TenantID         uuid.UUID
	FinancingID      uuid.UUID
	Stream           StreamKind
	Number           int
	DueDate          time.Time
	DueAmount        decimal.Decimal
	PrincipalPortion decimal.Decimal
	InterestPortion  decimal.Decimal
	AmountPaid       decimal.Decimal
	LateFeeAccrued   decimal.Decimal
	LateFeePaid      decimal.Decimal
	Status           InstallmentStatus
}

// AmountPending returns dueAmount - amountPaid, never negative
func (i *Installment) AmountPending() decimal.Decimal {
	return nonNegative(i.DueAmount.Sub(i.AmountPaid))
}

// LateFeePending returns the accrued late fee not yet paid
func (i *Installment) LateFeePending() decimal.Decimal {
	return nonNegative(i.LateFeeAccrued.Sub(i.LateFeePaid))
}

// Outstanding is everything still owed on the installment
func (i *Installment) Outstanding() decimal.Decimal {
	return i.AmountPending().Add(i.LateFeePending())
}

// HasPaidHistory reports whether any money was applied to the installment
func (i *Installment) HasPaidHistory() bool {
	return i.AmountPaid.IsPositive() || i.LateFeePaid.IsPositive()
}

// IsOverdue reports whether the installment is past due with principal pending
func (i *Installment) IsOverdue(today time.Time) bool {
	return NormalizeDate(i.DueDate).Before(NormalizeDate(today)) && i.AmountPending().IsPositive()
}

// EffectiveStatus returns the stored status, or EXPIRED when the
// installment is overdue. EXPIRED is never persisted.
func (i *Installment) EffectiveStatus(today time.Time) InstallmentStatus {
	if i.IsOverdue(today) {
		return InstallmentStatusExpired
	}
	return i.Status
}

// recomputeStatus derives the stored status from the paid amounts
func (i *Installment) recomputeStatus() {
	switch {
	case i.AmountPending().IsZero() && i.LateFeePaid.Equal(i.LateFeeAccrued):
		i.Status = InstallmentStatusPaid
	case i.HasPaidHistory():
		i.Status = InstallmentStatusPartiallyPaid
	default:
		i.Status = InstallmentStatusPending
	}
}

// apply adds principal and late fee amounts, then recomputes status
func (i *Installment) apply(principal, lateFee decimal.Decimal) {
	i.AmountPaid = i.AmountPaid.Add(principal)
	i.LateFeePaid = i.LateFeePaid.Add(lateFee)
	i.recomputeStatus()
	i.Touch()
}

// revert removes exactly what apply added
func (i *Installment) revert(principal, lateFee decimal.Decimal) {
	i.AmountPaid = i.AmountPaid.Sub(principal)
	i.LateFeePaid = i.LateFeePaid.Sub(lateFee)
	i.recomputeStatus()
	i.Touch()
}

// setLateFeeAccrued replaces the accrued late fee maintained by the accrual process
func (i *Installment) setLateFeeAccrued(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError(CodeInvalidLateFee, "Late fee cannot be negative")
	}
	if amount.LessThan(i.LateFeePaid) {
		return shared.NewDomainError(CodeInvalidLateFee, "Late fee cannot be lower than the amount already paid: "+i.LateFeePaid.StringFixed(2))
	}
	i.LateFeeAccrued = amount.Round(2)
	i.recomputeStatus()
	i.Touch()
	return nil
}

// InstallmentSnapshot is an immutable copy kept in amendment audit records
type InstallmentSnapshot struct {
	Number     int               `json:"number"`
	DueDate    time.Time         `json:"due_date"`
	DueAmount  decimal.Decimal   `json:"due_amount"`
	AmountPaid decimal.Decimal   `json:"amount_paid"`
	Status     InstallmentStatus `json:"status"`
}

// Snapshot returns an audit copy of the installment
func (i *Installment) Snapshot() InstallmentSnapshot {
	return InstallmentSnapshot{
		Number:     i.Number,
		DueDate:    i.DueDate,
		DueAmount:  i.DueAmount,
		AmountPaid: i.AmountPaid,
		Status:     i.Status,
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
