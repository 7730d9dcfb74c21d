package financing

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/shared"
)

// AmendmentInstallment is one entry of an amendment's replacement list
type AmendmentInstallment struct {
	Number  int
	DueDate time.Time
	Amount  decimal.Decimal
	// Status is optional. PAID marks an installment with no payments as
	// settled outside the engine; PENDING and EXPIRED are accepted but
	// derived anyway.
	Status InstallmentStatus
}

// AmendmentRequest is a signed adjustment of a financing with the full
// replacement list of one stream's installments.
type AmendmentRequest struct {
	AdditionalAmount decimal.Decimal
	Stream           StreamKind
	Installments     []AmendmentInstallment
	Observation      string
}

// Amendment is the audit record of an applied amendment
type Amendment struct {
	shared.BaseEntity
	TenantID         uuid.UUID
	FinancingID      uuid.UUID
	Stream           StreamKind
	AdditionalAmount decimal.Decimal
	PreviousTotal    decimal.Decimal
	NewTotal         decimal.Decimal
	Observation      string
	Previous         []InstallmentSnapshot
	Result           []InstallmentSnapshot
	CreatedBy        *uuid.UUID
}

// AmendmentOutcome is what ApplyAmendment changed
type AmendmentOutcome struct {
	Amendment *Amendment
	Updated   []*Installment
	Created   []*Installment
	// Removed are unpaid installments dropped from the schedule
	Removed []*Installment
}

func (r AmendmentRequest) stream() StreamKind {
	if r.Stream == "" {
		return StreamLot
	}
	return r.Stream
}

// validate checks the shape of the replacement list
func (r AmendmentRequest) validate() error {
	var details []shared.FieldError
	if !r.stream().IsValid() {
		details = append(details, shared.FieldError{Field: "stream", Code: "UNKNOWN", Message: fmt.Sprintf("unknown stream %q", r.Stream)})
	}
	if !IsCentAmount(r.AdditionalAmount) {
		details = append(details, shared.FieldError{Field: "additional_amount", Code: "INVALID_PRECISION", Message: "additional amount cannot have more than 2 decimal places"})
	}
	if len(r.Installments) == 0 {
		details = append(details, shared.FieldError{Field: "installments", Code: "REQUIRED", Message: "at least one installment is required"})
	}

	seen := make(map[int]bool, len(r.Installments))
	for i, in := range r.Installments {
		field := func(name string) string { return fmt.Sprintf("installments[%d].%s", i, name) }
		if in.Number <= 0 {
			details = append(details, shared.FieldError{Field: field("number"), Code: "NOT_POSITIVE", Message: "number must be greater than zero"})
		} else if seen[in.Number] {
			details = append(details, shared.FieldError{Field: field("number"), Code: "DUPLICATE", Message: fmt.Sprintf("number %d appears more than once", in.Number)})
		}
		seen[in.Number] = true
		if in.DueDate.IsZero() {
			details = append(details, shared.FieldError{Field: field("due_date"), Code: "REQUIRED", Message: "due date is required"})
		}
		if !in.Amount.IsPositive() {
			details = append(details, shared.FieldError{Field: field("amount"), Code: "NOT_POSITIVE", Message: "amount must be greater than zero"})
		} else if !IsCentAmount(in.Amount) {
			details = append(details, shared.FieldError{Field: field("amount"), Code: "INVALID_PRECISION", Message: "amount cannot have more than 2 decimal places"})
		}
		if in.Status != "" && in.Status != InstallmentStatusPending && in.Status != InstallmentStatusPaid && in.Status != InstallmentStatusExpired {
			details = append(details, shared.FieldError{Field: field("status"), Code: "UNKNOWN", Message: fmt.Sprintf("status must be PENDING, PAID or EXPIRED, got %q", in.Status)})
		}
	}
	if len(details) > 0 {
		return shared.NewValidationError(CodeInvalidInstallments, "Invalid amendment installments", details)
	}

	sorted := r.sorted()
	for i := 1; i < len(sorted); i++ {
		if NormalizeDate(sorted[i].DueDate).Before(NormalizeDate(sorted[i-1].DueDate)) {
			return shared.NewValidationError(CodeInvalidInstallments, "Installment due dates must not decrease with their number", []shared.FieldError{{
				Field:   "installments",
				Code:    "DATE_ORDER",
				Message: fmt.Sprintf("installment %d is due before installment %d", sorted[i].Number, sorted[i-1].Number),
			}})
		}
	}
	return nil
}

func (r AmendmentRequest) sorted() []AmendmentInstallment {
	out := make([]AmendmentInstallment, len(r.Installments))
	copy(out, r.Installments)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// checkPaidHistory fails when an installment that already received money
// would be dropped or reduced below its paid amount.
func checkPaidHistory(existing []*Installment, replacement map[int]AmendmentInstallment) error {
	var details []shared.FieldError
	for _, inst := range existing {
		if !inst.HasPaidHistory() {
			continue
		}
		next, ok := replacement[inst.Number]
		switch {
		case !ok:
			details = append(details, shared.FieldError{
				Field:   fmt.Sprintf("installments.%d", inst.Number),
				Code:    "PAID_REMOVED",
				Message: fmt.Sprintf("installment %d has payments and cannot be removed", inst.Number),
			})
		case next.Status == InstallmentStatusPaid && !next.Amount.Equal(inst.AmountPaid):
			details = append(details, shared.FieldError{
				Field: fmt.Sprintf("installments.%d", inst.Number),
				Code:  "PAID_WITH_HISTORY",
				Message: fmt.Sprintf("installment %d has %s received and cannot be marked PAID at %s",
					inst.Number, inst.AmountPaid.StringFixed(2), next.Amount.StringFixed(2)),
			})
		case next.Amount.LessThan(inst.AmountPaid):
			details = append(details, shared.FieldError{
				Field: fmt.Sprintf("installments.%d", inst.Number),
				Code:  "BELOW_PAID",
				Message: fmt.Sprintf("installment %d cannot be reduced to %s, %s is already paid",
					inst.Number, next.Amount.StringFixed(2), inst.AmountPaid.StringFixed(2)),
			})
		}
	}
	if len(details) > 0 {
		return shared.NewValidationError(CodeAmendmentViolatesPaidHistory, "Amendment would rewrite paid installments", details)
	}
	return nil
}
