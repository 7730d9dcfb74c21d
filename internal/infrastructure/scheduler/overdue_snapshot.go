package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/domain/shared"
)

// OverdueSource lists unpaid installments due before a date
type OverdueSource interface {
	FindOverdueInstallments(ctx context.Context, asOf time.Time, limit int) ([]*financing.Installment, error)
}

// OverdueGauge receives the overdue installment count
type OverdueGauge interface {
	SetOverdueInstallments(n int)
}

// OverdueSnapshot is the result of one run
type OverdueSnapshot struct {
	AsOf           time.Time
	Installments   int
	Financings     int
	PendingAmount  decimal.Decimal
	LateFeePending decimal.Decimal
	Truncated      bool
}

// OverdueSnapshotJob counts overdue installments and publishes the count as a
// gauge. It never writes: EXPIRED is derived at read time and not stored.
type OverdueSnapshotJob struct {
	source OverdueSource
	gauge  OverdueGauge
	clock  shared.Clock
	logger *zap.Logger
	limit  int
}

// NewOverdueSnapshotJob creates the job. limit caps the rows read per run.
func NewOverdueSnapshotJob(source OverdueSource, gauge OverdueGauge, clock shared.Clock, logger *zap.Logger, limit int) *OverdueSnapshotJob {
	if limit <= 0 {
		limit = 100000
	}
	return &OverdueSnapshotJob{source: source, gauge: gauge, clock: clock, logger: logger, limit: limit}
}

// Name implements Job
func (j *OverdueSnapshotJob) Name() string {
	return "overdue_snapshot"
}

// Run implements Job
func (j *OverdueSnapshotJob) Run(ctx context.Context) error {
	_, err := j.Snapshot(ctx)
	return err
}

// Snapshot reads the overdue installments as of today and reports totals
func (j *OverdueSnapshotJob) Snapshot(ctx context.Context) (*OverdueSnapshot, error) {
	asOf := financing.NormalizeDate(j.clock.Now())
	installments, err := j.source.FindOverdueInstallments(ctx, asOf, j.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load overdue installments: %w", err)
	}

	snap := &OverdueSnapshot{
		AsOf:           asOf,
		PendingAmount:  decimal.Zero,
		LateFeePending: decimal.Zero,
		Truncated:      len(installments) >= j.limit,
	}
	financings := make(map[uuid.UUID]struct{})
	for _, inst := range installments {
		if !inst.IsOverdue(asOf) {
			continue
		}
		snap.Installments++
		snap.PendingAmount = snap.PendingAmount.Add(inst.AmountPending())
		snap.LateFeePending = snap.LateFeePending.Add(inst.LateFeePending())
		financings[inst.FinancingID] = struct{}{}
	}
	snap.Financings = len(financings)

	if j.gauge != nil {
		j.gauge.SetOverdueInstallments(snap.Installments)
	}
	j.logger.Info("Overdue snapshot taken",
		zap.Time("as_of", asOf),
		zap.Int("installments", snap.Installments),
		zap.Int("financings", snap.Financings),
		zap.String("pending_amount", snap.PendingAmount.StringFixed(2)),
		zap.String("late_fee_pending", snap.LateFeePending.StringFixed(2)),
		zap.Bool("truncated", snap.Truncated),
	)
	return snap, nil
}
