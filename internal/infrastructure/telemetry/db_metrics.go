package telemetry

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// RegisterDBPoolMetrics exposes database/sql pool statistics as observable gauges
func RegisterDBPoolMetrics(meter metric.Meter, db *sql.DB) error {
	open, err := meter.Int64ObservableGauge("db_pool_open_connections",
		metric.WithDescription("Established connections, in use and idle"))
	if err != nil {
		return fmt.Errorf("failed to create open connections gauge: %w", err)
	}
	inUse, err := meter.Int64ObservableGauge("db_pool_in_use_connections",
		metric.WithDescription("Connections currently in use"))
	if err != nil {
		return fmt.Errorf("failed to create in-use gauge: %w", err)
	}
	idle, err := meter.Int64ObservableGauge("db_pool_idle_connections",
		metric.WithDescription("Idle connections"))
	if err != nil {
		return fmt.Errorf("failed to create idle gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_count_total",
		metric.WithDescription("Connections waited for"))
	if err != nil {
		return fmt.Errorf("failed to create wait counter: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := db.Stats()
		o.ObserveInt64(open, int64(s.OpenConnections))
		o.ObserveInt64(inUse, int64(s.InUse))
		o.ObserveInt64(idle, int64(s.Idle))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, open, inUse, idle, waits)
	if err != nil {
		return fmt.Errorf("failed to register pool callback: %w", err)
	}
	return nil
}
