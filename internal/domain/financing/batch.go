package financing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/shared"
)

// SubPayment is one bank transaction of an auto-approved batch
type SubPayment struct {
	BankName      string
	Reference     string
	CodeOperation string
	OperationDate time.Time
	Amount        decimal.Decimal
	FileIndex     int
}

// AutoApprovedBatch is a set of bank transactions ingested without manual
// review. AmountPaid is the declared total of the sub-payments.
type AutoApprovedBatch struct {
	AmountPaid    decimal.Decimal
	OperationDate time.Time
	SubPayments   []SubPayment
	Observation   string
}

// Validate checks the batch before anything is mutated. Field errors are
// reported first; the sum check only runs on an otherwise valid batch.
func (b AutoApprovedBatch) Validate() error {
	var details []shared.FieldError
	if !b.AmountPaid.IsPositive() {
		details = append(details, shared.FieldError{Field: "amount_paid", Code: "NOT_POSITIVE", Message: "amount paid must be greater than zero"})
	} else if !IsCentAmount(b.AmountPaid) {
		details = append(details, shared.FieldError{Field: "amount_paid", Code: "INVALID_PRECISION", Message: "amount paid cannot have more than 2 decimal places"})
	}
	if len(b.SubPayments) == 0 {
		details = append(details, shared.FieldError{Field: "sub_payments", Code: "REQUIRED", Message: "at least one sub-payment is required"})
	}
	for i, sp := range b.SubPayments {
		details = append(details, validateSubPayment(i, b.subPaymentDate(sp), sp)...)
	}
	if len(details) > 0 {
		return shared.NewValidationError(CodeInvalidPayment, "Invalid auto-approved batch", details)
	}

	sum := b.SubPaymentTotal()
	if !sum.Equal(b.AmountPaid) {
		return shared.NewDomainError(CodeAmountMismatch, fmt.Sprintf(
			"Sub-payments sum to %s but the declared amount is %s", sum.StringFixed(2), b.AmountPaid.StringFixed(2)))
	}

	seen := make(map[OperationKey]int, len(b.SubPayments))
	for i, sp := range b.SubPayments {
		key := newOperationKey(sp.CodeOperation, sp.Reference)
		if first, ok := seen[key]; ok {
			return shared.NewValidationError(CodeDuplicateOperation,
				fmt.Sprintf("Operation %s/%s appears more than once in the batch", key.CodeOperation, key.Reference),
				[]shared.FieldError{{Field: fmt.Sprintf("sub_payments[%d]", i), Code: "DUPLICATE", Message: fmt.Sprintf("duplicates sub_payments[%d]", first)}})
		}
		seen[key] = i
	}
	return nil
}

func validateSubPayment(i int, opDate time.Time, sp SubPayment) []shared.FieldError {
	field := func(name string) string { return fmt.Sprintf("sub_payments[%d].%s", i, name) }
	checks := []func() *shared.FieldError{
		func() *shared.FieldError {
			if strings.TrimSpace(sp.CodeOperation) == "" {
				return &shared.FieldError{Field: field("code_operation"), Code: "REQUIRED", Message: "operation code is required"}
			}
			return nil
		},
		func() *shared.FieldError {
			if strings.TrimSpace(sp.Reference) == "" {
				return &shared.FieldError{Field: field("reference"), Code: "REQUIRED", Message: "transaction reference is required"}
			}
			return nil
		},
		func() *shared.FieldError {
			if !sp.Amount.IsPositive() {
				return &shared.FieldError{Field: field("amount"), Code: "NOT_POSITIVE", Message: "amount must be greater than zero"}
			}
			if !IsCentAmount(sp.Amount) {
				return &shared.FieldError{Field: field("amount"), Code: "INVALID_PRECISION", Message: "amount cannot have more than 2 decimal places"}
			}
			return nil
		},
		func() *shared.FieldError {
			if opDate.IsZero() {
				return &shared.FieldError{Field: field("operation_date"), Code: "REQUIRED", Message: "operation date is required"}
			}
			return nil
		},
	}
	return collect(checks)
}

// subPaymentDate falls back to the batch date when a sub-payment has none
func (b AutoApprovedBatch) subPaymentDate(sp SubPayment) time.Time {
	if sp.OperationDate.IsZero() {
		return b.OperationDate
	}
	return sp.OperationDate
}

// SubPaymentTotal sums the sub-payment amounts
func (b AutoApprovedBatch) SubPaymentTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, sp := range b.SubPayments {
		sum = sum.Add(sp.Amount)
	}
	return sum
}

// CheckAgainst fails with DUPLICATE_OPERATION when a sub-payment repeats an
// operation already registered for the financing.
func (b AutoApprovedBatch) CheckAgainst(existing []OperationKey) error {
	known := make(map[OperationKey]bool, len(existing))
	for _, k := range existing {
		known[newOperationKey(k.CodeOperation, k.Reference)] = true
	}
	var details []shared.FieldError
	for i, sp := range b.SubPayments {
		if known[newOperationKey(sp.CodeOperation, sp.Reference)] {
			details = append(details, shared.FieldError{
				Field:   fmt.Sprintf("sub_payments[%d]", i),
				Code:    "ALREADY_REGISTERED",
				Message: fmt.Sprintf("operation %s/%s is already registered", sp.CodeOperation, sp.Reference),
			})
		}
	}
	if len(details) > 0 {
		return shared.NewValidationError(CodeDuplicateOperation, "Bank operation already registered", details)
	}
	return nil
}

// BatchResult is the outcome of applying an auto-approved batch
type BatchResult struct {
	BatchID   uuid.UUID
	Payments  []*Payment
	Allocated decimal.Decimal
	Residual  decimal.Decimal
	Touched   []*Installment
}

// newBatchPayments builds one payment per sub-payment and hands each the
// slice of the parent allocation it funded.
func newBatchPayments(tenantID, financingID uuid.UUID, b AutoApprovedBatch, parent AllocationResult) (uuid.UUID, []*Payment) {
	batchID := uuid.New()
	budgets := make([]decimal.Decimal, len(b.SubPayments))
	for i, sp := range b.SubPayments {
		budgets[i] = sp.Amount
	}
	shares := splitAllocations(parent.Allocations, budgets)

	payments := make([]*Payment, len(b.SubPayments))
	for i, sp := range b.SubPayments {
		fileIndex := sp.FileIndex
		bid := batchID
		p := &Payment{
			BaseEntity:    shared.NewBaseEntity(),
			TenantID:      tenantID,
			FinancingID:   financingID,
			Kind:          PaymentKindAutoApproved,
			Status:        PaymentStatusActive,
			Amount:        sp.Amount,
			OperationDate: NormalizeDate(b.subPaymentDate(sp)),
			Reference:     strings.TrimSpace(sp.Reference),
			CodeOperation: strings.TrimSpace(sp.CodeOperation),
			BankName:      strings.TrimSpace(sp.BankName),
			FileIndex:     &fileIndex,
			BatchID:       &bid,
			Observation:   b.Observation,
		}
		p.attach(shares[i])
		payments[i] = p
	}
	return batchID, payments
}
