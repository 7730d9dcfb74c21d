package financing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realestate/backend/internal/domain/shared"
)

func sub(code, ref, amount string, idx int) SubPayment {
	return SubPayment{
		BankName:      "BCP",
		Reference:     ref,
		CodeOperation: code,
		OperationDate: date(2024, time.March, 4),
		Amount:        dec(amount),
		FileIndex:     idx,
	}
}

func TestAutoApprovedBatch_AmountMismatch(t *testing.T) {
	f := newTestFinancing(t, false)
	before := capture(f)

	_, err := f.ApplyAutoApprovedBatch(AutoApprovedBatch{
		AmountPaid:  dec("500.00"),
		SubPayments: []SubPayment{sub("001", "A", "200.00", 1), sub("002", "B", "250.00", 2)},
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmountMismatch))
	assert.Contains(t, err.Error(), "450.00")
	assert.Equal(t, before, capture(f), "nothing is mutated on a rejected batch")
	assert.Equal(t, 1, f.Version)
}

func TestAutoApprovedBatch_RejectsSubCentAmounts(t *testing.T) {
	f := newTestFinancing(t, false)
	before := capture(f)

	_, err := f.ApplyAutoApprovedBatch(AutoApprovedBatch{
		AmountPaid:  dec("200.000"),
		SubPayments: []SubPayment{sub("001", "A", "100.005", 1), sub("002", "B", "99.995", 2)},
	}, nil)

	require.Error(t, err)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, CodeInvalidPayment, de.Code)
	fields := make([]string, len(de.Details))
	for i, d := range de.Details {
		fields[i] = d.Field
	}
	assert.ElementsMatch(t, []string{"sub_payments[0].amount", "sub_payments[1].amount"}, fields)
	assert.Equal(t, before, capture(f))

	_, err = f.ApplyAutoApprovedBatch(AutoApprovedBatch{
		AmountPaid:  dec("200.001"),
		SubPayments: []SubPayment{sub("001", "A", "100.00", 1), sub("002", "B", "100.00", 2)},
	}, nil)
	require.True(t, errors.As(err, &de))
	require.Len(t, de.Details, 1)
	assert.Equal(t, "amount_paid", de.Details[0].Field)
}

func TestAutoApprovedBatch_RequiresIdentification(t *testing.T) {
	tests := []struct {
		name  string
		sp    SubPayment
		field string
	}{
		{"missing operation code", sub("", "B", "100.00", 2), "sub_payments[1].code_operation"},
		{"missing reference", sub("002", " ", "100.00", 2), "sub_payments[1].reference"},
		{"non-positive amount", sub("002", "B", "0", 2), "sub_payments[1].amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := AutoApprovedBatch{
				AmountPaid:  dec("200.00"),
				SubPayments: []SubPayment{sub("001", "A", "100.00", 1), tt.sp},
			}
			err := b.Validate()
			require.Error(t, err)

			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, CodeInvalidPayment, de.Code)
			require.NotEmpty(t, de.Details)
			assert.Equal(t, tt.field, de.Details[0].Field)
		})
	}

	err := AutoApprovedBatch{AmountPaid: dec("1")}.Validate()
	assert.Error(t, err, "empty batch")
}

func TestAutoApprovedBatch_FallsBackToBatchDate(t *testing.T) {
	sp := sub("001", "A", "100.00", 1)
	sp.OperationDate = time.Time{}
	b := AutoApprovedBatch{AmountPaid: dec("100.00"), SubPayments: []SubPayment{sp}}
	assert.Error(t, b.Validate())

	b.OperationDate = date(2024, time.March, 1)
	assert.NoError(t, b.Validate())
}

func TestAutoApprovedBatch_SplitsAllocationsPerSubPayment(t *testing.T) {
	f := newTestFinancing(t, false)
	res, err := f.ApplyAutoApprovedBatch(AutoApprovedBatch{
		AmountPaid:  dec("1300.00"),
		SubPayments: []SubPayment{sub("001", "A", "700.00", 1), sub("002", "B", "600.00", 2)},
		Observation: "statement 2024-03",
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Payments, 2)
	assert.Equal(t, "1300.00", res.Allocated.StringFixed(2))
	assert.True(t, res.Residual.IsZero())

	l1 := installment(t, f, StreamLot, 1)
	l2 := installment(t, f, StreamLot, 2)
	assert.Equal(t, InstallmentStatusPaid, l1.Status)
	assert.Equal(t, "300.00", l2.AmountPaid.StringFixed(2))

	a, b := res.Payments[0], res.Payments[1]
	require.Len(t, a.Allocations, 1)
	assert.Equal(t, l1.ID, a.Allocations[0].InstallmentID)
	assert.Equal(t, "700.00", a.Allocations[0].Total().StringFixed(2))

	require.Len(t, b.Allocations, 2)
	assert.Equal(t, l1.ID, b.Allocations[0].InstallmentID)
	assert.Equal(t, "300.00", b.Allocations[0].Total().StringFixed(2))
	assert.Equal(t, l2.ID, b.Allocations[1].InstallmentID)
	assert.Equal(t, "300.00", b.Allocations[1].Total().StringFixed(2))

	for i, p := range res.Payments {
		assert.Equal(t, PaymentKindAutoApproved, p.Kind)
		require.NotNil(t, p.BatchID)
		assert.Equal(t, res.BatchID, *p.BatchID)
		require.NotNil(t, p.FileIndex)
		assert.Equal(t, i+1, *p.FileIndex)
		assert.True(t, p.Unapplied.IsZero())
		assert.Equal(t, "statement 2024-03", p.Observation)
		for _, al := range p.Allocations {
			assert.Equal(t, p.ID, al.PaymentID)
		}
	}
	assert.Len(t, f.GetDomainEvents(), 2)
}

func TestAutoApprovedBatch_ResidualLandsOnLastSubPayments(t *testing.T) {
	f := newTestFinancing(t, true)
	res, err := f.ApplyAutoApprovedBatch(AutoApprovedBatch{
		AmountPaid:  dec("4000.00"),
		SubPayments: []SubPayment{sub("001", "A", "3000.00", 1), sub("002", "B", "1000.00", 2)},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "400.00", res.Residual.StringFixed(2))
	assert.True(t, res.Payments[0].Unapplied.IsZero())
	assert.Equal(t, "400.00", res.Payments[1].Unapplied.StringFixed(2))
	assert.Equal(t, "600.00", res.Payments[1].TotalAllocated().StringFixed(2))
	for _, inst := range f.Installments {
		assert.Equal(t, InstallmentStatusPaid, inst.Status)
	}
}

func TestAutoApprovedBatch_Duplicates(t *testing.T) {
	t.Run("within the batch", func(t *testing.T) {
		b := AutoApprovedBatch{
			AmountPaid:  dec("200.00"),
			SubPayments: []SubPayment{sub("001", "A", "100.00", 1), sub("001", "A", "100.00", 2)},
		}
		assert.True(t, errors.Is(b.Validate(), ErrDuplicateOperation))
	})

	t.Run("already registered", func(t *testing.T) {
		f := newTestFinancing(t, false)
		_, err := f.ApplyAutoApprovedBatch(AutoApprovedBatch{
			AmountPaid:  dec("100.00"),
			SubPayments: []SubPayment{sub("001", "A", "100.00", 1)},
		}, []OperationKey{{CodeOperation: "001", Reference: "A"}})
		assert.True(t, errors.Is(err, ErrDuplicateOperation))
		assert.True(t, installment(t, f, StreamLot, 1).AmountPaid.IsZero())
	})
}

func TestAutoApprovedBatch_CancelOneSubPayment(t *testing.T) {
	f := newTestFinancing(t, false)
	res, err := f.ApplyAutoApprovedBatch(AutoApprovedBatch{
		AmountPaid:  dec("1300.00"),
		SubPayments: []SubPayment{sub("001", "A", "700.00", 1), sub("002", "B", "600.00", 2)},
	}, nil)
	require.NoError(t, err)

	_, err = f.CancelPayment(res.Payments[1], "reversed by bank", time.Now())
	require.NoError(t, err)

	l1 := installment(t, f, StreamLot, 1)
	l2 := installment(t, f, StreamLot, 2)
	assert.Equal(t, "700.00", l1.AmountPaid.StringFixed(2))
	assert.Equal(t, InstallmentStatusPartiallyPaid, l1.Status)
	assert.True(t, l2.AmountPaid.IsZero())
	assert.Equal(t, InstallmentStatusPending, l2.Status)
}
