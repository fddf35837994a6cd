// Package planner computes how a month's income pool is split across
// spending categories. It is pure: all inputs are already-fetched rows and
// nothing here touches storage.
package planner

import (
	"fmt"

	"fondi/internal/core"
)

// percentEpsilon absorbs float noise when checking that percent fractions
// sum to at most 1.
const percentEpsilon = 1e-9

// Result is the outcome of planning one budget month.
type Result struct {
	// SpendablePoolMinor is min(cap, income), clamped to >= 0.
	SpendablePoolMinor int64
	// PercentBaseMinor is the pool left after FIXED lines, the base PERCENT
	// lines divide.
	PercentBaseMinor  int64
	PlannedByCategory map[int64]int64
	PlannedTotalMinor int64
	RemainingMinor    int64
	OverAllocated     bool
}

// Planned returns the planned amount for a category, zero if the category
// has no line.
func (r Result) Planned(categoryID int64) int64 {
	return r.PlannedByCategory[categoryID]
}

// Plan allocates the spendable pool across the given budget lines.
//
// FIXED lines are applied first at their face amount (clamped to >= 0).
// PERCENT lines then each receive percent * percentBase truncated toward
// zero, independently per line; truncation remainders are not
// redistributed, so RemainingMinor can stay slightly positive even at 100%
// allocation, and never goes negative while fractions sum to at most 1.
func Plan(lines []core.BudgetLine, totalIncomeMinor, capMinor int64) Result {
	pool := min(capMinor, totalIncomeMinor)
	if pool < 0 {
		pool = 0
	}

	planned := make(map[int64]int64, len(lines))
	var fixedTotal int64
	for _, l := range lines {
		if l.Alloc.Kind() != core.AllocationFixed {
			continue
		}
		amount := l.Alloc.Planned(0)
		planned[l.CategoryID] = amount
		fixedTotal += amount
	}

	percentBase := pool - fixedTotal
	if percentBase < 0 {
		percentBase = 0
	}

	total := fixedTotal
	for _, l := range lines {
		if l.Alloc.Kind() != core.AllocationPercent {
			continue
		}
		amount := core.PercentOf(l.Alloc.Percent(), percentBase)
		planned[l.CategoryID] = amount
		total += amount
	}

	remaining := pool - total
	return Result{
		SpendablePoolMinor: pool,
		PercentBaseMinor:   percentBase,
		PlannedByCategory:  planned,
		PlannedTotalMinor:  total,
		RemainingMinor:     remaining,
		OverAllocated:      remaining < 0,
	}
}

// ValidateLines rejects line sets the planner would accept but a caller
// should not: percent fractions summing past 100%, or a FIXED line larger
// than the pool that remains once every other line is planned. The second
// check reports how far that one line overshoots instead of a generic
// rejection.
func ValidateLines(lines []core.BudgetLine, totalIncomeMinor, capMinor int64) error {
	var percentSum float64
	for _, l := range lines {
		if l.Alloc.Kind() == core.AllocationPercent {
			percentSum += l.Alloc.Percent()
		}
	}
	if percentSum > 1+percentEpsilon {
		return fmt.Errorf("%w: fractions sum to %.6f", core.ErrPercentSum, percentSum)
	}

	for i, l := range lines {
		if l.Alloc.Kind() != core.AllocationFixed {
			continue
		}
		rest := make([]core.BudgetLine, 0, len(lines)-1)
		rest = append(rest, lines[:i]...)
		rest = append(rest, lines[i+1:]...)
		without := Plan(rest, totalIncomeMinor, capMinor)
		amount := l.Alloc.AmountMinor()
		if amount > without.RemainingMinor {
			return &core.OverAllocationError{
				Scope:       fmt.Sprintf("category %d", l.CategoryID),
				OverByMinor: amount - without.RemainingMinor,
			}
		}
	}
	return nil
}
