package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for request binding errors
	ErrCodeValidation = "ERR_VALIDATION"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Financing error codes. These are part of the API contract and are
// returned as raised by the engine.
const (
	ErrCodeInvalidDateOrdering          = "INVALID_DATE_ORDERING"
	ErrCodeInvalidTerms                 = "INVALID_TERMS"
	ErrCodeInvalidAmount                = "INVALID_AMOUNT"
	ErrCodeInvalidPayment               = "INVALID_PAYMENT"
	ErrCodeInvalidInstallments          = "INVALID_INSTALLMENTS"
	ErrCodeInvalidLateFee               = "INVALID_LATE_FEE"
	ErrCodeInvalidImportFile            = "INVALID_IMPORT_FILE"
	ErrCodeCancelReasonRequired         = "CANCEL_REASON_REQUIRED"
	ErrCodeAmountMismatch               = "AMOUNT_MISMATCH"
	ErrCodeAmendmentViolatesPaidHistory = "AMENDMENT_VIOLATES_PAID_HISTORY"
	ErrCodeAmendmentTotalMismatch       = "AMENDMENT_TOTAL_MISMATCH"
	ErrCodeNothingToCancel              = "NOTHING_TO_CANCEL"
	ErrCodeDuplicateOperation           = "DUPLICATE_OPERATION"
	ErrCodeLockTimeout                  = "LOCK_TIMEOUT"
	ErrCodeIdempotencyKeyReused         = "IDEMPOTENCY_KEY_REUSED"
	ErrCodePersistenceFailure           = "PERSISTENCE_FAILURE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Request shape -> 400 Bad Request
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeInvalidInput:         http.StatusBadRequest,
	ErrCodeInvalidTerms:         http.StatusBadRequest,
	ErrCodeInvalidAmount:        http.StatusBadRequest,
	ErrCodeInvalidPayment:       http.StatusBadRequest,
	ErrCodeInvalidInstallments:  http.StatusBadRequest,
	ErrCodeInvalidLateFee:       http.StatusBadRequest,
	ErrCodeInvalidImportFile:    http.StatusBadRequest,
	ErrCodeCancelReasonRequired: http.StatusBadRequest,
	ErrCodeTooLarge:             http.StatusRequestEntityTooLarge,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeAlreadyExists:        http.StatusConflict,
	ErrCodeConflict:             http.StatusConflict,
	ErrCodeConcurrencyConflict:  http.StatusConflict,
	ErrCodeDuplicateOperation:   http.StatusConflict,
	ErrCodeLockTimeout:          http.StatusConflict,
	ErrCodeIdempotencyKeyReused: http.StatusConflict,

	// Business rules -> 422 Unprocessable Entity
	ErrCodeInvalidState:                 http.StatusUnprocessableEntity,
	ErrCodeInvalidDateOrdering:          http.StatusUnprocessableEntity,
	ErrCodeAmountMismatch:               http.StatusUnprocessableEntity,
	ErrCodeAmendmentViolatesPaidHistory: http.StatusUnprocessableEntity,
	ErrCodeAmendmentTotalMismatch:       http.StatusUnprocessableEntity,
	ErrCodeNothingToCancel:              http.StatusUnprocessableEntity,

	// Store unavailable
	ErrCodePersistenceFailure: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps shared domain error codes to the ERR_ format
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a legacy error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
