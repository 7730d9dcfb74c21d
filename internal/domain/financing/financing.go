package financing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/domain/shared/valueobject"
)

// Financing is the aggregate root for a sale's installment schedule. It owns
// the installments of both streams; payments and amendments reference it.
type Financing struct {
	shared.TenantAggregateRoot
	SaleID       uuid.UUID
	Currency     valueobject.Currency
	SaleDate     time.Time
	LotTerms     StreamTerms
	HuTerms      *StreamTerms
	TotalAmount  decimal.Decimal
	Installments []*Installment
}

// NewFinancing generates the schedule for a sale and returns the new aggregate
func NewFinancing(tenantID, saleID uuid.UUID, saleDate time.Time, terms FinancingTerms) (*Financing, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewDomainError(CodeInvalidTerms, "Sale ID is required")
	}
	if terms.Currency == "" {
		terms.Currency = valueobject.DefaultCurrency
	}
	schedule, err := GenerateSchedule(terms)
	if err != nil {
		return nil, err
	}

	f := &Financing{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SaleID:              saleID,
		Currency:            terms.Currency,
		SaleDate:            NormalizeDate(saleDate),
		LotTerms:            terms.Lot,
		HuTerms:             terms.Hu,
		TotalAmount:         schedule.Total,
	}
	for _, inst := range schedule.All() {
		f.adopt(inst)
	}

	f.AddDomainEvent(&FinancingCreatedEvent{
		BaseDomainEvent:  newEvent(EventTypeFinancingCreated, f),
		SaleID:           saleID,
		TotalAmount:      f.TotalAmount,
		InstallmentCount: len(f.Installments),
	})
	return f, nil
}

// adopt gives a generated installment its identity within this financing
func (f *Financing) adopt(inst *Installment) {
	inst.BaseEntity = shared.NewBaseEntity()
	inst.TenantID = f.TenantID
	inst.FinancingID = f.ID
	f.Installments = append(f.Installments, inst)
}

// Stream returns the installments of one stream ordered by number
func (f *Financing) Stream(kind StreamKind) []*Installment {
	out := make([]*Installment, 0, len(f.Installments))
	for _, inst := range f.Installments {
		if inst.Stream == kind {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Calendar returns the combined calendar as seen on today
func (f *Financing) Calendar(today time.Time) CombinedCalendar {
	return BuildCombinedCalendar(f.Installments, today)
}

// FindInstallment returns the installment with the given ID, or nil
func (f *Financing) FindInstallment(id uuid.UUID) *Installment {
	for _, inst := range f.Installments {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}

// HasHuStream reports whether the financing includes an urban-development stream
func (f *Financing) HasHuStream() bool {
	return len(f.Stream(StreamUrbanDevelopment)) > 0
}

func (f *Financing) touch() {
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
}

// ApplyPayment allocates a new payment against the calendar
func (f *Financing) ApplyPayment(p *Payment) (*AllocationResult, error) {
	if p == nil || p.FinancingID != f.ID {
		return nil, shared.NewDomainError(CodeInvalidPayment, "Payment does not belong to this financing")
	}
	if !p.Amount.IsPositive() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Payment amount must be positive")
	}
	if p.IsCancelled() || len(p.Allocations) > 0 {
		return nil, shared.NewDomainError(CodeInvalidPayment, "Payment has already been applied")
	}

	result := allocate(f.Installments, p.Amount)
	p.attach(result.Allocations)
	result.Allocations = p.Allocations

	f.touch()
	f.AddDomainEvent(&PaymentAppliedEvent{
		BaseDomainEvent: newEvent(EventTypePaymentApplied, f),
		PaymentID:       p.ID,
		Kind:            p.Kind,
		Amount:          p.Amount,
		Allocated:       result.Allocated,
		Unapplied:       p.Unapplied,
	})
	return &result, nil
}

// ApplyAutoApprovedBatch validates a batch, allocates its declared amount
// once and returns one payment per sub-payment. existing lists the bank
// operations already registered for the financing.
func (f *Financing) ApplyAutoApprovedBatch(b AutoApprovedBatch, existing []OperationKey) (*BatchResult, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := b.CheckAgainst(existing); err != nil {
		return nil, err
	}

	parent := allocate(f.Installments, b.AmountPaid)
	batchID, payments := newBatchPayments(f.TenantID, f.ID, b, parent)

	f.touch()
	for _, p := range payments {
		f.AddDomainEvent(&PaymentAppliedEvent{
			BaseDomainEvent: newEvent(EventTypePaymentApplied, f),
			PaymentID:       p.ID,
			Kind:            p.Kind,
			Amount:          p.Amount,
			Allocated:       p.TotalAllocated(),
			Unapplied:       p.Unapplied,
			BatchID:         p.BatchID,
		})
	}
	return &BatchResult{
		BatchID:   batchID,
		Payments:  payments,
		Allocated: parent.Allocated,
		Residual:  parent.Residual,
		Touched:   parent.Touched,
	}, nil
}

// CancelPayment reverses exactly what the payment allocated and marks it
// cancelled. It returns the installments that changed.
func (f *Financing) CancelPayment(p *Payment, reason string, at time.Time) ([]*Installment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrCancelReasonRequired
	}
	if p == nil || p.FinancingID != f.ID {
		return nil, shared.NewDomainError(CodeInvalidPayment, "Payment does not belong to this financing")
	}
	if p.IsCancelled() {
		return nil, shared.NewDomainError(CodeNothingToCancel, "Payment is already cancelled")
	}
	if len(p.Allocations) == 0 {
		return nil, shared.NewDomainError(CodeNothingToCancel, "Payment has no recorded allocations")
	}

	// Check every reversal before touching any installment
	targets := make([]*Installment, len(p.Allocations))
	for i, a := range p.Allocations {
		inst := f.FindInstallment(a.InstallmentID)
		if inst == nil {
			return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Installment %s of payment allocation no longer exists", a.InstallmentID))
		}
		if inst.AmountPaid.LessThan(a.PrincipalApplied) || inst.LateFeePaid.LessThan(a.LateFeeApplied) {
			return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Installment %s %d has less paid than the allocation to reverse", inst.Stream, inst.Number))
		}
		targets[i] = inst
	}

	touched := make([]*Installment, 0, len(targets))
	seen := make(map[uuid.UUID]bool, len(targets))
	for i, a := range p.Allocations {
		targets[i].revert(a.PrincipalApplied, a.LateFeeApplied)
		if !seen[targets[i].ID] {
			seen[targets[i].ID] = true
			touched = append(touched, targets[i])
		}
	}

	cancelledAt := at
	p.Status = PaymentStatusCancelled
	p.CancelReason = reason
	p.CancelledAt = &cancelledAt
	p.Touch()

	f.touch()
	f.AddDomainEvent(&PaymentCancelledEvent{
		BaseDomainEvent: newEvent(EventTypePaymentCancelled, f),
		PaymentID:       p.ID,
		Reversed:        p.TotalAllocated(),
		Reason:          reason,
	})
	return touched, nil
}

// RecordLateFee sets the accrued late fee of an installment. Accrual itself
// is computed outside the engine.
func (f *Financing) RecordLateFee(installmentID uuid.UUID, accrued decimal.Decimal) (*Installment, error) {
	inst := f.FindInstallment(installmentID)
	if inst == nil {
		return nil, shared.ErrNotFound
	}
	previous := inst.LateFeeAccrued
	if err := inst.setLateFeeAccrued(accrued); err != nil {
		return nil, err
	}
	f.touch()
	f.AddDomainEvent(&LateFeeRecordedEvent{
		BaseDomainEvent: newEvent(EventTypeLateFeeRecorded, f),
		InstallmentID:   inst.ID,
		Previous:        previous,
		Accrued:         inst.LateFeeAccrued,
	})
	return inst, nil
}

// ApplyAmendment replaces one stream's schedule with the supplied list and
// moves the financing total by the signed additional amount. Installments
// that already received money keep their identity and paid amounts.
func (f *Financing) ApplyAmendment(req AmendmentRequest) (*AmendmentOutcome, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	stream := req.stream()
	existing := f.Stream(stream)

	replacement := make(map[int]AmendmentInstallment, len(req.Installments))
	for _, in := range req.Installments {
		replacement[in.Number] = in
	}
	if err := checkPaidHistory(existing, replacement); err != nil {
		return nil, err
	}

	previousTotal := f.TotalAmount
	newTotal := previousTotal.Add(req.AdditionalAmount)
	otherTotal := decimal.Zero
	for _, inst := range f.Installments {
		if inst.Stream != stream {
			otherTotal = otherTotal.Add(inst.DueAmount)
		}
	}
	sum := otherTotal
	for _, in := range req.Installments {
		sum = sum.Add(in.Amount)
	}
	if !sum.Equal(newTotal) {
		return nil, shared.NewDomainError(CodeAmendmentTotalMismatch, fmt.Sprintf(
			"Installments sum to %s but the amended total is %s (previous %s, additional %s)",
			sum.StringFixed(2), newTotal.StringFixed(2), previousTotal.StringFixed(2), req.AdditionalAmount.StringFixed(2)))
	}

	// Validation passed; mutate
	previous := make([]InstallmentSnapshot, len(existing))
	byNumber := make(map[int]*Installment, len(existing))
	for i, inst := range existing {
		previous[i] = inst.Snapshot()
		byNumber[inst.Number] = inst
	}

	outcome := &AmendmentOutcome{}
	kept := make([]*Installment, 0, len(f.Installments))
	for _, inst := range f.Installments {
		if inst.Stream != stream {
			kept = append(kept, inst)
		}
	}
	for _, in := range req.sorted() {
		inst, ok := byNumber[in.Number]
		if ok {
			delete(byNumber, in.Number)
			outcome.Updated = append(outcome.Updated, inst)
		} else {
			inst = &Installment{
				BaseEntity:     shared.NewBaseEntity(),
				TenantID:       f.TenantID,
				FinancingID:    f.ID,
				Stream:         stream,
				Number:         in.Number,
				AmountPaid:     decimal.Zero,
				LateFeeAccrued: decimal.Zero,
				LateFeePaid:    decimal.Zero,
			}
			outcome.Created = append(outcome.Created, inst)
		}
		inst.DueDate = NormalizeDate(in.DueDate)
		inst.DueAmount = in.Amount
		inst.PrincipalPortion = in.Amount
		inst.InterestPortion = decimal.Zero
		if in.Status == InstallmentStatusPaid && !inst.HasPaidHistory() {
			inst.AmountPaid = in.Amount
		}
		inst.recomputeStatus()
		inst.Touch()
		kept = append(kept, inst)
	}
	for _, inst := range existing {
		if _, dropped := byNumber[inst.Number]; dropped {
			outcome.Removed = append(outcome.Removed, inst)
		}
	}
	f.Installments = kept
	f.TotalAmount = newTotal

	result := f.Stream(stream)
	snapshots := make([]InstallmentSnapshot, len(result))
	for i, inst := range result {
		snapshots[i] = inst.Snapshot()
	}
	outcome.Amendment = &Amendment{
		BaseEntity:       shared.NewBaseEntity(),
		TenantID:         f.TenantID,
		FinancingID:      f.ID,
		Stream:           stream,
		AdditionalAmount: req.AdditionalAmount,
		PreviousTotal:    previousTotal,
		NewTotal:         newTotal,
		Observation:      strings.TrimSpace(req.Observation),
		Previous:         previous,
		Result:           snapshots,
	}

	f.touch()
	f.AddDomainEvent(&AmendmentAppliedEvent{
		BaseDomainEvent:  newEvent(EventTypeAmendmentApplied, f),
		AmendmentID:      outcome.Amendment.ID,
		AdditionalAmount: req.AdditionalAmount,
		NewTotal:         newTotal,
	})
	return outcome, nil
}
