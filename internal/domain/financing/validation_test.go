package financing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realestate/backend/internal/domain/shared"
)

func TestValidateSaleDates(t *testing.T) {
	today := time.Date(2024, time.June, 10, 18, 45, 0, 0, time.UTC)
	sale := date(2024, time.June, 10)
	huBefore := date(2024, time.June, 9)
	huAfter := date(2024, time.July, 10)

	tests := []struct {
		name       string
		dates      SaleDates
		wantFields []string
	}{
		{
			name:  "payment equal to sale date is valid",
			dates: SaleDates{SaleDate: sale, PaymentDate: sale},
		},
		{
			name:       "payment one day before sale date fails",
			dates:      SaleDates{SaleDate: sale, PaymentDate: sale.AddDate(0, 0, -1)},
			wantFields: []string{"payment_date"},
		},
		{
			name:       "sale date before today fails",
			dates:      SaleDates{SaleDate: sale.AddDate(0, 0, -1), PaymentDate: sale},
			wantFields: []string{"sale_date"},
		},
		{
			name:       "hu first date before sale fails",
			dates:      SaleDates{SaleDate: sale, PaymentDate: sale, FirstPaymentDateHu: &huBefore},
			wantFields: []string{"first_payment_date_hu"},
		},
		{
			name:  "hu first date after sale is valid",
			dates: SaleDates{SaleDate: sale, PaymentDate: sale.AddDate(0, 1, 0), FirstPaymentDateHu: &huAfter},
		},
		{
			name:  "time of day is ignored",
			dates: SaleDates{SaleDate: sale.Add(time.Hour), PaymentDate: sale.Add(30 * time.Minute)},
		},
		{
			name:       "every failing check is reported",
			dates:      SaleDates{SaleDate: sale.AddDate(0, 0, -2), PaymentDate: sale.AddDate(0, 0, -3), FirstPaymentDateHu: &huBefore},
			wantFields: []string{"sale_date", "payment_date", "first_payment_date_hu"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSaleDates(tt.dates, today)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDateOrdering))

			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			fields := make([]string, 0, len(de.Details))
			for _, d := range de.Details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}
