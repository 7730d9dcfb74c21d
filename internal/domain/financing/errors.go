package financing

import "github.com/realestate/backend/internal/domain/shared"

// Error codes raised by the financing engine
const (
	CodeInvalidDateOrdering          = "INVALID_DATE_ORDERING"
	CodeInvalidTerms                 = "INVALID_TERMS"
	CodeInvalidAmount                = "INVALID_AMOUNT"
	CodeInvalidPayment               = "INVALID_PAYMENT"
	CodeAmountMismatch               = "AMOUNT_MISMATCH"
	CodeDuplicateOperation           = "DUPLICATE_OPERATION"
	CodeNothingToCancel              = "NOTHING_TO_CANCEL"
	CodeCancelReasonRequired         = "CANCEL_REASON_REQUIRED"
	CodeInvalidInstallments          = "INVALID_INSTALLMENTS"
	CodeAmendmentViolatesPaidHistory = "AMENDMENT_VIOLATES_PAID_HISTORY"
	CodeAmendmentTotalMismatch       = "AMENDMENT_TOTAL_MISMATCH"
	CodeInvalidLateFee               = "INVALID_LATE_FEE"
)

// Sentinels for errors.Is matching; concrete errors carry richer messages
var (
	ErrInvalidDateOrdering          = shared.NewDomainError(CodeInvalidDateOrdering, "Invalid date ordering")
	ErrInvalidTerms                 = shared.NewDomainError(CodeInvalidTerms, "Invalid financing terms")
	ErrAmountMismatch               = shared.NewDomainError(CodeAmountMismatch, "Sub-payment amounts do not match the declared total")
	ErrDuplicateOperation           = shared.NewDomainError(CodeDuplicateOperation, "Bank operation already registered")
	ErrNothingToCancel              = shared.NewDomainError(CodeNothingToCancel, "Payment has no allocations to cancel")
	ErrCancelReasonRequired         = shared.NewDomainError(CodeCancelReasonRequired, "A cancellation reason is required")
	ErrAmendmentViolatesPaidHistory = shared.NewDomainError(CodeAmendmentViolatesPaidHistory, "Amendment would reduce an installment below its paid amount")
	ErrAmendmentTotalMismatch       = shared.NewDomainError(CodeAmendmentTotalMismatch, "Amendment installments do not match the new total")
)
