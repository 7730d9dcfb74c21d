package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/telemetry"
)

func newTestMetrics(t *testing.T) (*telemetry.FinancingMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := telemetry.NewFinancingMetrics(mp.Meter(telemetry.MeterName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumInt(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func sumFloat(t *testing.T, m metricdata.Metrics) float64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[float64])
	require.True(t, ok, "metric %s is not a float64 sum", m.Name)
	var total float64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func base(eventType string) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, financing.AggregateTypeFinancing, uuid.New(), uuid.New())
}

func TestFinancingMetrics_HandleEvents(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	events := []shared.DomainEvent{
		&financing.FinancingCreatedEvent{BaseDomainEvent: base(financing.EventTypeFinancingCreated)},
		&financing.PaymentAppliedEvent{
			BaseDomainEvent: base(financing.EventTypePaymentApplied),
			Kind:            financing.PaymentKindManual,
			Amount:          decimal.NewFromInt(1200),
			Allocated:       decimal.NewFromInt(1000),
			Unapplied:       decimal.NewFromInt(200),
		},
		&financing.PaymentAppliedEvent{
			BaseDomainEvent: base(financing.EventTypePaymentApplied),
			Kind:            financing.PaymentKindAutoApproved,
			Amount:          decimal.NewFromInt(500),
			Allocated:       decimal.NewFromInt(500),
			Unapplied:       decimal.Zero,
		},
		&financing.PaymentCancelledEvent{
			BaseDomainEvent: base(financing.EventTypePaymentCancelled),
			Reversed:        decimal.NewFromInt(500),
		},
		&financing.AmendmentAppliedEvent{BaseDomainEvent: base(financing.EventTypeAmendmentApplied)},
	}
	for _, e := range events {
		require.NoError(t, m.Handle(ctx, e))
	}

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumInt(t, got["financing_created_total"]))
	assert.Equal(t, int64(2), sumInt(t, got["financing_payments_applied_total"]))
	assert.InDelta(t, 1500.0, sumFloat(t, got["financing_amount_allocated_total"]), 0.001)
	assert.InDelta(t, 200.0, sumFloat(t, got["financing_amount_unapplied_total"]), 0.001)
	assert.Equal(t, int64(1), sumInt(t, got["financing_payments_cancelled_total"]))
	assert.InDelta(t, 500.0, sumFloat(t, got["financing_amount_reversed_total"]), 0.001)
	assert.Equal(t, int64(1), sumInt(t, got["financing_amendments_applied_total"]))
}

func TestFinancingMetrics_LockWaitAndOverdue(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordLockWait(context.Background(), 20*time.Millisecond, true)
	m.RecordLockWait(context.Background(), 5*time.Second, false)
	m.SetOverdueInstallments(7)

	got := collect(t, reader)

	hist, ok := got["financing_lock_wait_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
	assert.Len(t, hist.DataPoints, 2)

	gauge, ok := got["financing_overdue_installments"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
}

func TestFinancingMetrics_NilSafe(t *testing.T) {
	var m *telemetry.FinancingMetrics
	assert.NotPanics(t, func() {
		m.RecordLockWait(context.Background(), time.Second, true)
		m.SetOverdueInstallments(1)
	})
}

func TestFinancingMetrics_EventTypes(t *testing.T) {
	m, _ := newTestMetrics(t)
	assert.ElementsMatch(t, []string{
		financing.EventTypeFinancingCreated,
		financing.EventTypePaymentApplied,
		financing.EventTypePaymentCancelled,
		financing.EventTypeAmendmentApplied,
	}, m.EventTypes())
}
