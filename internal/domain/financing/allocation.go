package financing

import (
	"github.com/shopspring/decimal"
)

// AllocationResult is the outcome of applying an amount to a calendar
type AllocationResult struct {
	Allocations []Allocation
	Allocated   decimal.Decimal
	// Residual is what was left after every installment was paid
	Residual decimal.Decimal
	Touched  []*Installment
}

// allocate applies amount to the installments in calendar order, mutating
// them. Late fee is settled before principal within an installment. When the
// amount does not cover an installment in full it is applied there and
// allocation stops; otherwise the surplus moves on to the next installment.
// Anything left after the whole calendar is paid is returned as Residual.
func allocate(installments []*Installment, amount decimal.Decimal) AllocationResult {
	result := AllocationResult{Allocated: decimal.Zero, Residual: decimal.Zero}
	remaining := amount

	for _, inst := range MergeStreams(installments) {
		if !remaining.IsPositive() {
			break
		}
		if !inst.Outstanding().IsPositive() {
			continue
		}

		fee := decimal.Min(remaining, inst.LateFeePending())
		remaining = remaining.Sub(fee)
		principal := decimal.Min(remaining, inst.AmountPending())
		remaining = remaining.Sub(principal)

		inst.apply(principal, fee)
		result.Allocations = append(result.Allocations, Allocation{
			InstallmentID:    inst.ID,
			Stream:           inst.Stream,
			Number:           inst.Number,
			PrincipalApplied: principal,
			LateFeeApplied:   fee,
		})
		result.Touched = append(result.Touched, inst)
		result.Allocated = result.Allocated.Add(principal).Add(fee)

		if inst.Outstanding().IsPositive() {
			break
		}
	}

	result.Residual = remaining
	return result
}

// splitAllocations distributes a sequence of allocations over the given
// budgets in order, keeping late fee ahead of principal, so each budget gets
// the allocations it funded. Budgets beyond the allocated total get none.
func splitAllocations(allocations []Allocation, budgets []decimal.Decimal) [][]Allocation {
	type slice struct {
		alloc     Allocation
		fee       decimal.Decimal
		principal decimal.Decimal
	}
	queue := make([]slice, len(allocations))
	for i, a := range allocations {
		queue[i] = slice{alloc: a, fee: a.LateFeeApplied, principal: a.PrincipalApplied}
	}

	out := make([][]Allocation, len(budgets))
	q := 0
	for b, budget := range budgets {
		remaining := budget
		for remaining.IsPositive() && q < len(queue) {
			s := &queue[q]
			fee := decimal.Min(remaining, s.fee)
			remaining = remaining.Sub(fee)
			principal := decimal.Min(remaining, s.principal)
			remaining = remaining.Sub(principal)
			s.fee = s.fee.Sub(fee)
			s.principal = s.principal.Sub(principal)

			if fee.IsPositive() || principal.IsPositive() {
				part := s.alloc
				part.LateFeeApplied = fee
				part.PrincipalApplied = principal
				out[b] = append(out[b], part)
			}
			if s.fee.IsZero() && s.principal.IsZero() {
				q++
			}
		}
	}
	return out
}
