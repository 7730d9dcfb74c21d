package financing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realestate/backend/internal/domain/shared"
)

func amendLine(number int, due time.Time, amount string) AmendmentInstallment {
	return AmendmentInstallment{Number: number, DueDate: due, Amount: dec(amount)}
}

func TestApplyAmendment_TotalMismatch(t *testing.T) {
	f := newTestFinancing(t, false)
	_, err := f.ApplyAmendment(AmendmentRequest{
		AdditionalAmount: dec("-100.00"),
		Installments: []AmendmentInstallment{
			amendLine(1, date(2024, time.February, 1), "1000.00"),
			amendLine(2, date(2024, time.March, 1), "1000.00"),
			amendLine(3, date(2024, time.April, 1), "950.00"),
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmendmentTotalMismatch))
	assert.True(t, f.TotalAmount.Equal(dec("3000.00")))
	assert.Equal(t, "1000.00", installment(t, f, StreamLot, 3).DueAmount.StringFixed(2))
}

func TestApplyAmendment_Reduction(t *testing.T) {
	f := newTestFinancing(t, false)
	ids := map[int]string{}
	for _, inst := range f.Installments {
		ids[inst.Number] = inst.ID.String()
	}

	out, err := f.ApplyAmendment(AmendmentRequest{
		AdditionalAmount: dec("-100.00"),
		Installments: []AmendmentInstallment{
			amendLine(1, date(2024, time.February, 1), "1000.00"),
			amendLine(2, date(2024, time.March, 1), "1000.00"),
			amendLine(3, date(2024, time.April, 1), "900.00"),
		},
		Observation: "discount agreed with client",
	})
	require.NoError(t, err)

	assert.True(t, f.TotalAmount.Equal(dec("2900.00")))
	assert.Len(t, out.Updated, 3)
	assert.Empty(t, out.Created)
	assert.Empty(t, out.Removed)
	for _, inst := range f.Installments {
		assert.Equal(t, ids[inst.Number], inst.ID.String(), "existing rows keep their identity")
	}

	a := out.Amendment
	assert.Equal(t, StreamLot, a.Stream)
	assert.True(t, a.PreviousTotal.Equal(dec("3000.00")))
	assert.True(t, a.NewTotal.Equal(dec("2900.00")))
	assert.Equal(t, "discount agreed with client", a.Observation)
	require.Len(t, a.Previous, 3)
	require.Len(t, a.Result, 3)
	assert.Equal(t, "1000.00", a.Previous[2].DueAmount.StringFixed(2))
	assert.Equal(t, "900.00", a.Result[2].DueAmount.StringFixed(2))
	assert.Equal(t, 2, f.Version)
}

func TestApplyAmendment_PaidHistory(t *testing.T) {
	newPaid := func(t *testing.T) *Financing {
		f := newTestFinancing(t, false)
		_, err := f.ApplyPayment(newPayment(t, f, "1200.00"))
		require.NoError(t, err)
		return f
	}

	t.Run("cannot shrink below paid", func(t *testing.T) {
		f := newPaid(t)
		_, err := f.ApplyAmendment(AmendmentRequest{
			AdditionalAmount: dec("0"),
			Installments: []AmendmentInstallment{
				amendLine(1, date(2024, time.February, 1), "1000.00"),
				amendLine(2, date(2024, time.March, 1), "150.00"),
				amendLine(3, date(2024, time.April, 1), "1850.00"),
			},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAmendmentViolatesPaidHistory))

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		require.Len(t, de.Details, 1)
		assert.Equal(t, "BELOW_PAID", de.Details[0].Code)
	})

	t.Run("cannot remove paid", func(t *testing.T) {
		f := newPaid(t)
		_, err := f.ApplyAmendment(AmendmentRequest{
			AdditionalAmount: dec("0"),
			Installments: []AmendmentInstallment{
				amendLine(2, date(2024, time.March, 1), "1500.00"),
				amendLine(3, date(2024, time.April, 1), "1500.00"),
			},
		})
		assert.True(t, errors.Is(err, ErrAmendmentViolatesPaidHistory))
	})

	t.Run("cannot mark a partly paid installment as settled", func(t *testing.T) {
		f := newTestFinancing(t, false)
		p := newPayment(t, f, "40.00")
		_, err := f.ApplyPayment(p)
		require.NoError(t, err)
		before := capture(f)

		_, err = f.ApplyAmendment(AmendmentRequest{
			AdditionalAmount: dec("0"),
			Installments: []AmendmentInstallment{
				{Number: 1, DueDate: date(2024, time.February, 1), Amount: dec("1000.00"), Status: InstallmentStatusPaid},
				amendLine(2, date(2024, time.March, 1), "1000.00"),
				amendLine(3, date(2024, time.April, 1), "1000.00"),
			},
		})
		require.Error(t, err)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, CodeAmendmentViolatesPaidHistory, de.Code)
		require.Len(t, de.Details, 1)
		assert.Equal(t, "PAID_WITH_HISTORY", de.Details[0].Code)
		assert.Equal(t, before, capture(f))

		_, err = f.CancelPayment(p, "bank rejected the transfer", date(2024, time.March, 6))
		require.NoError(t, err)
		l1 := installment(t, f, StreamLot, 1)
		assert.True(t, l1.AmountPaid.IsZero())
		assert.Equal(t, InstallmentStatusPending, l1.Status)
	})

	t.Run("PAID on a fully paid installment is a no-op", func(t *testing.T) {
		f := newPaid(t)
		_, err := f.ApplyAmendment(AmendmentRequest{
			AdditionalAmount: dec("0"),
			Installments: []AmendmentInstallment{
				{Number: 1, DueDate: date(2024, time.February, 1), Amount: dec("1000.00"), Status: InstallmentStatusPaid},
				amendLine(2, date(2024, time.March, 1), "1000.00"),
				amendLine(3, date(2024, time.April, 1), "1000.00"),
			},
		})
		require.NoError(t, err)
		l1 := installment(t, f, StreamLot, 1)
		assert.Equal(t, "1000.00", l1.AmountPaid.StringFixed(2))
		assert.Equal(t, InstallmentStatusPaid, l1.Status)
	})

	t.Run("paid rows kept, pending tail replaced", func(t *testing.T) {
		f := newPaid(t)
		l1 := installment(t, f, StreamLot, 1)
		out, err := f.ApplyAmendment(AmendmentRequest{
			AdditionalAmount: dec("500.00"),
			Installments: []AmendmentInstallment{
				amendLine(1, date(2024, time.February, 1), "1000.00"),
				amendLine(2, date(2024, time.March, 1), "500.00"),
				amendLine(3, date(2024, time.April, 1), "1000.00"),
				amendLine(4, date(2024, time.May, 1), "1000.00"),
			},
		})
		require.NoError(t, err)
		require.Len(t, out.Created, 1)
		assert.Equal(t, 4, out.Created[0].Number)
		assert.Equal(t, f.ID, out.Created[0].FinancingID)

		assert.Same(t, l1, installment(t, f, StreamLot, 1))
		assert.Equal(t, InstallmentStatusPaid, l1.Status)
		l2 := installment(t, f, StreamLot, 2)
		assert.Equal(t, "200.00", l2.AmountPaid.StringFixed(2))
		assert.Equal(t, InstallmentStatusPartiallyPaid, l2.Status)
		assert.True(t, f.TotalAmount.Equal(dec("3500.00")))
		assert.Len(t, f.Installments, 4)
	})
}

func TestApplyAmendment_RemovesUnpaidTail(t *testing.T) {
	f := newTestFinancing(t, true)
	l3 := installment(t, f, StreamLot, 3)

	out, err := f.ApplyAmendment(AmendmentRequest{
		AdditionalAmount: dec("0"),
		Installments: []AmendmentInstallment{
			amendLine(1, date(2024, time.February, 1), "1500.00"),
			amendLine(2, date(2024, time.March, 1), "1500.00"),
		},
	})
	require.NoError(t, err)
	require.Len(t, out.Removed, 1)
	assert.Equal(t, l3.ID, out.Removed[0].ID)
	assert.Len(t, f.Stream(StreamLot), 2)
	assert.Len(t, f.Stream(StreamUrbanDevelopment), 2, "other stream untouched")
	assert.True(t, f.TotalAmount.Equal(dec("3600.00")))
}

func TestApplyAmendment_HuStreamAndPaidStatus(t *testing.T) {
	f := newTestFinancing(t, true)
	out, err := f.ApplyAmendment(AmendmentRequest{
		AdditionalAmount: dec("-100.00"),
		Stream:           StreamUrbanDevelopment,
		Installments: []AmendmentInstallment{
			{Number: 1, DueDate: date(2024, time.March, 1), Amount: dec("300.00"), Status: InstallmentStatusPaid},
			{Number: 2, DueDate: date(2024, time.April, 1), Amount: dec("200.00"), Status: InstallmentStatusExpired},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StreamUrbanDevelopment, out.Amendment.Stream)

	u1 := installment(t, f, StreamUrbanDevelopment, 1)
	u2 := installment(t, f, StreamUrbanDevelopment, 2)
	assert.Equal(t, InstallmentStatusPaid, u1.Status)
	assert.Equal(t, InstallmentStatusPending, u2.Status, "EXPIRED is never stored")
	assert.True(t, f.TotalAmount.Equal(dec("3500.00")))
}

func TestApplyAmendment_InvalidList(t *testing.T) {
	tests := []struct {
		name  string
		lines []AmendmentInstallment
	}{
		{"empty", nil},
		{"duplicate number", []AmendmentInstallment{
			amendLine(1, date(2024, 2, 1), "1500.00"),
			amendLine(1, date(2024, 3, 1), "1500.00"),
		}},
		{"dates decrease", []AmendmentInstallment{
			amendLine(1, date(2024, 3, 1), "1500.00"),
			amendLine(2, date(2024, 2, 1), "1500.00"),
		}},
		{"unknown status", []AmendmentInstallment{
			{Number: 1, DueDate: date(2024, 2, 1), Amount: dec("3000.00"), Status: InstallmentStatusPartiallyPaid},
		}},
		{"sub-cent amounts", []AmendmentInstallment{
			amendLine(1, date(2024, 2, 1), "1499.995"),
			amendLine(2, date(2024, 3, 1), "1500.005"),
		}},
		{"zero amount", []AmendmentInstallment{
			amendLine(1, date(2024, 2, 1), "3000.00"),
			amendLine(2, date(2024, 3, 1), "0"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFinancing(t, false)
			_, err := f.ApplyAmendment(AmendmentRequest{AdditionalAmount: dec("0"), Installments: tt.lines})
			require.Error(t, err)
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, CodeInvalidInstallments, de.Code)
		})
	}
}

func TestApplyAmendment_SubCentAdditionalAmount(t *testing.T) {
	f := newTestFinancing(t, false)
	_, err := f.ApplyAmendment(AmendmentRequest{
		AdditionalAmount: dec("0.005"),
		Installments: []AmendmentInstallment{
			amendLine(1, date(2024, time.February, 1), "1000.00"),
			amendLine(2, date(2024, time.March, 1), "1000.00"),
			amendLine(3, date(2024, time.April, 1), "1000.005"),
		},
	})
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, CodeInvalidInstallments, de.Code)
	assert.True(t, f.TotalAmount.Equal(dec("3000.00")))
}
