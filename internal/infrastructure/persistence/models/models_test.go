package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realestate/backend/internal/domain/financing"
)

func testFinancing(t *testing.T, withHu bool) *financing.Financing {
	t.Helper()
	terms := financing.FinancingTerms{
		Lot: financing.StreamTerms{
			Principal:    decimal.NewFromInt(3000),
			Quantity:     3,
			FirstDueDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	if withHu {
		terms.Hu = &financing.StreamTerms{
			Principal:    decimal.NewFromInt(600),
			Quantity:     2,
			FirstDueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	f, err := financing.NewFinancing(uuid.New(), uuid.New(), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), terms)
	require.NoError(t, err)
	return f
}

func TestJSONColumn_RoundTrip(t *testing.T) {
	col := NewJSONColumn(StreamTermsRecord{Principal: decimal.NewFromInt(10), Quantity: 2, Rule: "FLAT"})
	v, err := col.Value()
	require.NoError(t, err)

	var back JSONColumn[StreamTermsRecord]
	require.NoError(t, back.Scan([]byte(v.(string))))
	assert.Equal(t, 2, back.Data.Quantity)
	assert.True(t, back.Data.Principal.Equal(decimal.NewFromInt(10)))

	require.NoError(t, back.Scan(nil))
	assert.Zero(t, back.Data.Quantity)
	assert.Error(t, back.Scan(42))
}

func TestFinancingModel_Conversion(t *testing.T) {
	f := testFinancing(t, true)

	m := FinancingModelFromDomain(f)
	m.Installments = InstallmentModelsFromDomain(f.Installments)
	assert.Equal(t, f.ID, m.ID)
	assert.Equal(t, 1, m.Version)
	require.NotNil(t, m.HuTerms.Data)

	back := m.ToDomain()
	assert.Equal(t, f.ID, back.ID)
	assert.Equal(t, f.TenantID, back.TenantID)
	assert.Equal(t, f.SaleID, back.SaleID)
	assert.True(t, back.TotalAmount.Equal(decimal.NewFromInt(3600)))
	require.NotNil(t, back.HuTerms)
	assert.Equal(t, 2, back.HuTerms.Quantity)
	assert.Len(t, back.Installments, 5)
	assert.Len(t, back.Stream(financing.StreamUrbanDevelopment), 2)
	assert.Empty(t, back.GetDomainEvents())
}

func TestFinancingModel_WithoutHu(t *testing.T) {
	m := FinancingModelFromDomain(testFinancing(t, false))
	assert.Nil(t, m.HuTerms.Data)
	assert.Nil(t, m.ToDomain().HuTerms)
}

func TestPaymentModel_KeepsAllocationOrder(t *testing.T) {
	f := testFinancing(t, true)
	p, err := financing.NewManualPayment(f.TenantID, f.ID, financing.PaymentInput{
		Amount:        decimal.NewFromInt(1500),
		OperationDate: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = f.ApplyPayment(p)
	require.NoError(t, err)

	m := PaymentModelFromDomain(p)
	require.Len(t, m.Allocations, 2)
	assert.Equal(t, 0, m.Allocations[0].Sequence)
	assert.Equal(t, 1, m.Allocations[1].Sequence)

	back := m.ToDomain()
	assert.Equal(t, p.Allocations[0].InstallmentID, back.Allocations[0].InstallmentID)
	assert.True(t, back.TotalAllocated().Equal(decimal.NewFromInt(1500)))
}

func TestAmendmentModel_Conversion(t *testing.T) {
	a := &financing.Amendment{
		TenantID:         uuid.New(),
		FinancingID:      uuid.New(),
		Stream:           financing.StreamLot,
		AdditionalAmount: decimal.NewFromInt(100),
		Previous:         []financing.InstallmentSnapshot{{Number: 1}},
		Result:           []financing.InstallmentSnapshot{{Number: 1}, {Number: 2}},
	}
	back := AmendmentModelFromDomain(a).ToDomain()
	assert.Equal(t, financing.StreamLot, back.Stream)
	assert.Len(t, back.Result, 2)
}
