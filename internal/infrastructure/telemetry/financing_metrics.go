package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/domain/shared"
)

// Attribute keys shared by financing instruments
var (
	AttrTenantID    = attribute.Key("tenant_id")
	AttrPaymentKind = attribute.Key("payment_kind")
	AttrLockResult  = attribute.Key("lock_result")
)

// FinancingMetrics holds the business instruments of the financing engine.
// It also subscribes to the event bus so recording happens after commit.
type FinancingMetrics struct {
	paymentsApplied    metric.Int64Counter
	amountAllocated    metric.Float64Counter
	amountUnapplied    metric.Float64Counter
	paymentsCancelled  metric.Int64Counter
	amountReversed     metric.Float64Counter
	amendmentsApplied  metric.Int64Counter
	financingsCreated  metric.Int64Counter
	lockWait           metric.Float64Histogram
	overdueInstallment atomic.Int64
}

// NewFinancingMetrics registers the instruments on meter
func NewFinancingMetrics(meter metric.Meter) (*FinancingMetrics, error) {
	m := &FinancingMetrics{}
	var err error

	if m.paymentsApplied, err = meter.Int64Counter("financing_payments_applied_total",
		metric.WithDescription("Payments allocated against a calendar"),
		metric.WithUnit("{payment}")); err != nil {
		return nil, fmt.Errorf("failed to create payments counter: %w", err)
	}
	if m.amountAllocated, err = meter.Float64Counter("financing_amount_allocated_total",
		metric.WithDescription("Money allocated to installments")); err != nil {
		return nil, fmt.Errorf("failed to create allocated counter: %w", err)
	}
	if m.amountUnapplied, err = meter.Float64Counter("financing_amount_unapplied_total",
		metric.WithDescription("Payment residual left unapplied")); err != nil {
		return nil, fmt.Errorf("failed to create unapplied counter: %w", err)
	}
	if m.paymentsCancelled, err = meter.Int64Counter("financing_payments_cancelled_total",
		metric.WithDescription("Payments reversed by cancellation"),
		metric.WithUnit("{payment}")); err != nil {
		return nil, fmt.Errorf("failed to create cancellations counter: %w", err)
	}
	if m.amountReversed, err = meter.Float64Counter("financing_amount_reversed_total",
		metric.WithDescription("Money returned to installments by cancellations")); err != nil {
		return nil, fmt.Errorf("failed to create reversed counter: %w", err)
	}
	if m.amendmentsApplied, err = meter.Int64Counter("financing_amendments_applied_total",
		metric.WithDescription("Amendments applied to schedules"),
		metric.WithUnit("{amendment}")); err != nil {
		return nil, fmt.Errorf("failed to create amendments counter: %w", err)
	}
	if m.financingsCreated, err = meter.Int64Counter("financing_created_total",
		metric.WithDescription("Schedules generated for sales"),
		metric.WithUnit("{financing}")); err != nil {
		return nil, fmt.Errorf("failed to create financings counter: %w", err)
	}
	if m.lockWait, err = meter.Float64Histogram("financing_lock_wait_seconds",
		metric.WithDescription("Time spent waiting for the per-financing lock"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5)); err != nil {
		return nil, fmt.Errorf("failed to create lock wait histogram: %w", err)
	}
	if _, err = meter.Int64ObservableGauge("financing_overdue_installments",
		metric.WithDescription("Unpaid installments past due at the last overdue snapshot"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.overdueInstallment.Load())
			return nil
		})); err != nil {
		return nil, fmt.Errorf("failed to create overdue gauge: %w", err)
	}
	return m, nil
}

// RecordLockWait records how long acquiring a financing lock took
func (m *FinancingMetrics) RecordLockWait(ctx context.Context, d time.Duration, acquired bool) {
	if m == nil {
		return
	}
	result := "acquired"
	if !acquired {
		result = "failed"
	}
	m.lockWait.Record(ctx, d.Seconds(), metric.WithAttributes(AttrLockResult.String(result)))
}

// SetOverdueInstallments updates the overdue gauge
func (m *FinancingMetrics) SetOverdueInstallments(n int) {
	if m == nil {
		return
	}
	m.overdueInstallment.Store(int64(n))
}

// Handle implements shared.EventHandler
func (m *FinancingMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	tenant := metric.WithAttributes(AttrTenantID.String(event.TenantID().String()))
	switch e := event.(type) {
	case *financing.FinancingCreatedEvent:
		m.financingsCreated.Add(ctx, 1, tenant)
	case *financing.PaymentAppliedEvent:
		attrs := metric.WithAttributes(
			AttrTenantID.String(event.TenantID().String()),
			AttrPaymentKind.String(string(e.Kind)),
		)
		m.paymentsApplied.Add(ctx, 1, attrs)
		m.amountAllocated.Add(ctx, e.Allocated.InexactFloat64(), attrs)
		if e.Unapplied.IsPositive() {
			m.amountUnapplied.Add(ctx, e.Unapplied.InexactFloat64(), attrs)
		}
	case *financing.PaymentCancelledEvent:
		m.paymentsCancelled.Add(ctx, 1, tenant)
		m.amountReversed.Add(ctx, e.Reversed.InexactFloat64(), tenant)
	case *financing.AmendmentAppliedEvent:
		m.amendmentsApplied.Add(ctx, 1, tenant)
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (m *FinancingMetrics) EventTypes() []string {
	return []string{
		financing.EventTypeFinancingCreated,
		financing.EventTypePaymentApplied,
		financing.EventTypePaymentCancelled,
		financing.EventTypeAmendmentApplied,
	}
}
