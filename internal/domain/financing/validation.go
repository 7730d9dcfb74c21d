package financing

import (
	"time"

	"github.com/realestate/backend/internal/domain/shared"
)

// SaleDates are the dates proposed for a new sale
type SaleDates struct {
	SaleDate           time.Time
	PaymentDate        time.Time
	FirstPaymentDateHu *time.Time
}

// ValidateSaleDates checks the temporal ordering of a new sale's dates.
// All dates, including today, are compared at UTC midnight. Every failing
// check is reported as a field error of a single INVALID_DATE_ORDERING error.
func ValidateSaleDates(dates SaleDates, today time.Time) error {
	sale := NormalizeDate(dates.SaleDate)
	payment := NormalizeDate(dates.PaymentDate)
	now := NormalizeDate(today)

	checks := []func() *shared.FieldError{
		func() *shared.FieldError {
			if sale.Before(now) {
				return &shared.FieldError{Field: "sale_date", Code: "BEFORE_TODAY", Message: "sale date cannot be earlier than today"}
			}
			return nil
		},
		func() *shared.FieldError {
			if payment.Before(sale) {
				return &shared.FieldError{Field: "payment_date", Code: "BEFORE_SALE_DATE", Message: "payment date cannot be earlier than the sale date"}
			}
			return nil
		},
		func() *shared.FieldError {
			if dates.FirstPaymentDateHu == nil {
				return nil
			}
			if NormalizeDate(*dates.FirstPaymentDateHu).Before(sale) {
				return &shared.FieldError{Field: "first_payment_date_hu", Code: "BEFORE_SALE_DATE", Message: "first HU payment date cannot be earlier than the sale date"}
			}
			return nil
		},
	}

	if details := collect(checks); len(details) > 0 {
		return shared.NewValidationError(CodeInvalidDateOrdering, "Invalid sale dates: "+details[0].Message, details)
	}
	return nil
}
