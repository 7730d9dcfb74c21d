package financing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/domain/shared/valueobject"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func flatTerms(principal string, qty int, first time.Time) StreamTerms {
	return StreamTerms{Principal: dec(principal), Quantity: qty, FirstDueDate: first}
}

// ============================================
// FLAT rule
// ============================================

func TestGenerateSchedule_FlatRemainderInLastInstallment(t *testing.T) {
	s, err := GenerateSchedule(FinancingTerms{
		Currency: valueobject.PEN,
		Lot:      flatTerms("1000.00", 3, date(2024, time.February, 15)),
	})
	require.NoError(t, err)
	require.Len(t, s.Lot, 3)
	assert.Empty(t, s.Hu)

	assert.Equal(t, "333.33", s.Lot[0].DueAmount.StringFixed(2))
	assert.Equal(t, "333.33", s.Lot[1].DueAmount.StringFixed(2))
	assert.Equal(t, "333.34", s.Lot[2].DueAmount.StringFixed(2))
	assert.True(t, s.Total.Equal(dec("1000.00")))

	for i, inst := range s.Lot {
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, StreamLot, inst.Stream)
		assert.Equal(t, InstallmentStatusPending, inst.Status)
		assert.True(t, inst.AmountPaid.IsZero())
		assert.True(t, inst.InterestPortion.IsZero())
		assert.Equal(t, uuid.Nil, inst.ID, "generated installments are not persisted")
	}
}

func TestGenerateSchedule_FlatSumEqualsPrincipal(t *testing.T) {
	principals := []string{"1.00", "100.00", "999.99", "35000.00", "123456.78", "80000.01"}
	for _, p := range principals {
		for n := 1; n <= 120; n += 7 {
			if dec(p).Shift(2).LessThan(decimal.NewFromInt(int64(n))) {
				continue
			}
			s, err := GenerateSchedule(FinancingTerms{Lot: flatTerms(p, n, date(2024, time.January, 31))})
			require.NoError(t, err)
			require.Len(t, s.Lot, n)
			assert.True(t, TotalDue(s.Lot).Equal(dec(p)), "principal %s over %d", p, n)
			for _, inst := range s.Lot {
				require.True(t, inst.DueAmount.IsPositive(), "principal %s over %d: installment %d is %s", p, n, inst.Number, inst.DueAmount)
			}
		}
	}
}

func TestGenerateSchedule_OneCentPerInstallment(t *testing.T) {
	s, err := GenerateSchedule(FinancingTerms{Lot: flatTerms("1.00", 100, date(2024, time.January, 31))})
	require.NoError(t, err)
	for _, inst := range s.Lot {
		assert.Equal(t, "0.01", inst.DueAmount.StringFixed(2))
	}

	_, err = GenerateSchedule(FinancingTerms{Lot: flatTerms("1.00", 200, date(2024, time.January, 31))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTerms))
}

func TestGenerateSchedule_DueDatesFollowCalendar(t *testing.T) {
	s, err := GenerateSchedule(FinancingTerms{Lot: flatTerms("300.00", 3, date(2024, time.January, 31))})
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.January, 31), s.Lot[0].DueDate)
	assert.Equal(t, date(2024, time.February, 29), s.Lot[1].DueDate)
	assert.Equal(t, date(2024, time.March, 31), s.Lot[2].DueDate)
}

// ============================================
// Two streams
// ============================================

func TestGenerateSchedule_WithHuStream(t *testing.T) {
	hu := flatTerms("600.00", 2, date(2024, time.March, 1))
	s, err := GenerateSchedule(FinancingTerms{
		Lot: flatTerms("3000.00", 3, date(2024, time.February, 1)),
		Hu:  &hu,
	})
	require.NoError(t, err)
	require.Len(t, s.Lot, 3)
	require.Len(t, s.Hu, 2)
	assert.True(t, s.Total.Equal(dec("3600.00")))
	assert.True(t, TotalDue(s.Hu).Equal(dec("600.00")))
	assert.Equal(t, StreamUrbanDevelopment, s.Hu[0].Stream)
	assert.Equal(t, 1, s.Hu[0].Number)

	combined := s.Combined()
	require.Len(t, combined, 5)
	got := make([]string, len(combined))
	for i, inst := range combined {
		got[i] = inst.Stream.String()[:1] + string(rune('0'+inst.Number))
	}
	// LOT wins ties on the same due date
	assert.Equal(t, []string{"L1", "L2", "U1", "L3", "U2"}, got)
}

// ============================================
// FRENCH rule
// ============================================

func TestGenerateSchedule_French(t *testing.T) {
	lot := StreamTerms{
		Principal:    dec("10000.00"),
		Quantity:     12,
		FirstDueDate: date(2024, time.January, 10),
		AnnualRate:   dec("0.12"),
	}
	require.Equal(t, RuleFrench, lot.EffectiveRule())

	s, err := GenerateSchedule(FinancingTerms{Lot: lot})
	require.NoError(t, err)
	require.Len(t, s.Lot, 12)

	first := s.Lot[0]
	assert.Equal(t, "100.00", first.InterestPortion.StringFixed(2))
	assert.Equal(t, "788.49", first.PrincipalPortion.StringFixed(2))
	assert.Equal(t, "888.49", first.DueAmount.StringFixed(2))
	for _, inst := range s.Lot[:11] {
		assert.Equal(t, "888.49", inst.DueAmount.StringFixed(2))
	}
	assert.Equal(t, "888.47", s.Lot[11].DueAmount.StringFixed(2))

	principal := decimal.Zero
	for _, inst := range s.Lot {
		principal = principal.Add(inst.PrincipalPortion)
		assert.True(t, inst.DueAmount.Equal(inst.PrincipalPortion.Add(inst.InterestPortion)))
	}
	assert.True(t, principal.Equal(dec("10000.00")))
	assert.Equal(t, "10661.86", s.Total.StringFixed(2))
}

func TestStreamTerms_EffectiveRule(t *testing.T) {
	assert.Equal(t, RuleFlat, StreamTerms{}.EffectiveRule())
	assert.Equal(t, RuleFrench, StreamTerms{AnnualRate: dec("0.05")}.EffectiveRule())
	assert.Equal(t, RuleFlat, StreamTerms{AnnualRate: dec("0.05"), Rule: RuleFlat}.EffectiveRule())
}

// ============================================
// Terms validation
// ============================================

func TestGenerateSchedule_InvalidTerms(t *testing.T) {
	tests := []struct {
		name  string
		terms FinancingTerms
		field string
	}{
		{"zero principal", FinancingTerms{Lot: flatTerms("0", 3, date(2024, 1, 1))}, "lot.principal"},
		{"zero quantity", FinancingTerms{Lot: flatTerms("100", 0, date(2024, 1, 1))}, "lot.quantity"},
		{"missing first date", FinancingTerms{Lot: flatTerms("100", 1, time.Time{})}, "lot.first_due_date"},
		{"negative rate", FinancingTerms{Lot: StreamTerms{Principal: dec("100"), Quantity: 1, FirstDueDate: date(2024, 1, 1), AnnualRate: dec("-0.1")}}, "lot.annual_rate"},
		{"french without rate", FinancingTerms{Lot: StreamTerms{Principal: dec("100"), Quantity: 1, FirstDueDate: date(2024, 1, 1), Rule: RuleFrench}}, "lot.annual_rate"},
		{"flat with rate", FinancingTerms{Lot: StreamTerms{Principal: dec("100"), Quantity: 1, FirstDueDate: date(2024, 1, 1), AnnualRate: dec("0.05"), Rule: RuleFlat}}, "lot.annual_rate"},
		{"sub-cent principal", FinancingTerms{Lot: flatTerms("100.005", 2, date(2024, 1, 1))}, "lot.principal"},
		{"principal below a cent per installment", FinancingTerms{Lot: flatTerms("0.50", 51, date(2024, 1, 1))}, "lot.principal"},
		{"unknown currency", FinancingTerms{Currency: "EUR", Lot: flatTerms("100", 1, date(2024, 1, 1))}, "currency"},
		{"bad hu stream", FinancingTerms{Lot: flatTerms("100", 1, date(2024, 1, 1)), Hu: &StreamTerms{Principal: dec("50"), Quantity: -1, FirstDueDate: date(2024, 1, 1)}}, "hu.quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateSchedule(tt.terms)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTerms))

			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			fields := make([]string, 0, len(de.Details))
			for _, d := range de.Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}
