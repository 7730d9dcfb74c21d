package financing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// lessInstallment is the combined-calendar order: due date, then LOT before
// URBAN_DEVELOPMENT, then number within the stream.
func lessInstallment(a, b *Installment) bool {
	da, db := NormalizeDate(a.DueDate), NormalizeDate(b.DueDate)
	if !da.Equal(db) {
		return da.Before(db)
	}
	if a.Stream != b.Stream {
		return a.Stream.rank() < b.Stream.rank()
	}
	return a.Number < b.Number
}

// MergeStreams returns the combined calendar of the given streams without
// modifying the inputs.
func MergeStreams(streams ...[]*Installment) []*Installment {
	n := 0
	for _, s := range streams {
		n += len(s)
	}
	merged := make([]*Installment, 0, n)
	for _, s := range streams {
		merged = append(merged, s...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return lessInstallment(merged[i], merged[j])
	})
	return merged
}

// CalendarEntry is an installment as seen on a given day
type CalendarEntry struct {
	*Installment
	EffectiveStatus InstallmentStatus
}

// CalendarSummary aggregates a combined calendar
type CalendarSummary struct {
	TotalDue           decimal.Decimal
	TotalPaid          decimal.Decimal
	TotalPending       decimal.Decimal
	LateFeeAccrued     decimal.Decimal
	LateFeeOutstanding decimal.Decimal
	OverdueAmount      decimal.Decimal
	OverdueCount       int
	PaidCount          int
	InstallmentCount   int
	NextDue            *Installment
}

// CombinedCalendar is the date-merged view of a financing's streams
type CombinedCalendar struct {
	Entries []CalendarEntry
	Summary CalendarSummary
}

// BuildCombinedCalendar merges installments into calendar order and derives
// the read-time status and summary for today.
func BuildCombinedCalendar(installments []*Installment, today time.Time) CombinedCalendar {
	merged := MergeStreams(installments)
	cal := CombinedCalendar{Entries: make([]CalendarEntry, 0, len(merged))}
	s := CalendarSummary{
		TotalDue:           decimal.Zero,
		TotalPaid:          decimal.Zero,
		TotalPending:       decimal.Zero,
		LateFeeAccrued:     decimal.Zero,
		LateFeeOutstanding: decimal.Zero,
		OverdueAmount:      decimal.Zero,
		InstallmentCount:   len(merged),
	}

	for _, inst := range merged {
		status := inst.EffectiveStatus(today)
		cal.Entries = append(cal.Entries, CalendarEntry{Installment: inst, EffectiveStatus: status})

		s.TotalDue = s.TotalDue.Add(inst.DueAmount)
		s.TotalPaid = s.TotalPaid.Add(inst.AmountPaid)
		s.TotalPending = s.TotalPending.Add(inst.AmountPending())
		s.LateFeeAccrued = s.LateFeeAccrued.Add(inst.LateFeeAccrued)
		s.LateFeeOutstanding = s.LateFeeOutstanding.Add(inst.LateFeePending())

		switch {
		case inst.Status == InstallmentStatusPaid:
			s.PaidCount++
		case status == InstallmentStatusExpired:
			s.OverdueCount++
			s.OverdueAmount = s.OverdueAmount.Add(inst.AmountPending())
		}
		if s.NextDue == nil && inst.Outstanding().IsPositive() {
			s.NextDue = inst
		}
	}

	cal.Summary = s
	return cal
}

// TotalDue sums dueAmount across the given installments
func TotalDue(installments []*Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range installments {
		total = total.Add(inst.DueAmount)
	}
	return total
}
