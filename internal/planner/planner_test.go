package planner

import (
	"errors"
	"testing"

	"fondi/internal/core"
)

func fixed(cat, amount int64) core.BudgetLine {
	return core.BudgetLine{BudgetID: 1, CategoryID: cat, Alloc: core.FixedAllocation(amount)}
}

func percent(cat int64, frac float64) core.BudgetLine {
	return core.BudgetLine{BudgetID: 1, CategoryID: cat, Alloc: core.PercentAllocation(frac)}
}

func TestPlanWorkedExample(t *testing.T) {
	// cap 1000.00, income 800.00, one fixed 200.00, one 50% line.
	lines := []core.BudgetLine{fixed(1, 20000), percent(2, 0.5)}
	r := Plan(lines, 80000, 100000)

	if r.SpendablePoolMinor != 80000 {
		t.Fatalf("pool = %d", r.SpendablePoolMinor)
	}
	if r.PercentBaseMinor != 60000 {
		t.Fatalf("percent base = %d", r.PercentBaseMinor)
	}
	if got := r.Planned(1); got != 20000 {
		t.Fatalf("fixed plan = %d", got)
	}
	if got := r.Planned(2); got != 30000 {
		t.Fatalf("percent plan = %d", got)
	}
	if r.PlannedTotalMinor != 50000 || r.RemainingMinor != 30000 {
		t.Fatalf("total = %d remaining = %d", r.PlannedTotalMinor, r.RemainingMinor)
	}
	if r.OverAllocated {
		t.Fatalf("unexpected over-allocation")
	}
}

func TestPlanCapClampsToIncome(t *testing.T) {
	r := Plan(nil, 50000, 100000)
	if r.SpendablePoolMinor != 50000 {
		t.Fatalf("pool = %d", r.SpendablePoolMinor)
	}
	r = Plan(nil, -100, 100000)
	if r.SpendablePoolMinor != 0 {
		t.Fatalf("pool = %d, want 0", r.SpendablePoolMinor)
	}
}

func TestPlanFixedExceedsPool(t *testing.T) {
	r := Plan([]core.BudgetLine{fixed(1, 90000), percent(2, 0.5)}, 80000, 80000)
	if r.PercentBaseMinor != 0 {
		t.Fatalf("percent base = %d, want 0", r.PercentBaseMinor)
	}
	if got := r.Planned(2); got != 0 {
		t.Fatalf("percent plan = %d, want 0", got)
	}
	if !r.OverAllocated || r.RemainingMinor != -10000 {
		t.Fatalf("remaining = %d over = %v", r.RemainingMinor, r.OverAllocated)
	}
}

func TestPlanTotalNeverExceedsPool(t *testing.T) {
	// Percent fractions summing to 1 and fixed lines inside the pool keep
	// plannedTotal <= pool; independent truncation may leave a remainder.
	lines := []core.BudgetLine{
		fixed(1, 10000),
		percent(2, 0.335),
		percent(3, 0.335),
		percent(4, 0.33),
	}
	for _, income := range []int64{80001, 99999, 100000, 123457} {
		r := Plan(lines, income, 100000)
		if r.PlannedTotalMinor > r.SpendablePoolMinor {
			t.Fatalf("income %d: planned %d exceeds pool %d", income, r.PlannedTotalMinor, r.SpendablePoolMinor)
		}
		if r.OverAllocated != (r.RemainingMinor < 0) {
			t.Fatalf("over-allocated flag inconsistent with remaining")
		}
	}
}

func TestPlanRoundingNoRedistribution(t *testing.T) {
	// Three thirds of 100 truncate to 33 each, leaving 1 unassigned.
	lines := []core.BudgetLine{percent(1, 1.0 / 3), percent(2, 1.0 / 3), percent(3, 1.0 / 3)}
	r := Plan(lines, 100, 100)
	if r.PlannedTotalMinor != 99 || r.RemainingMinor != 1 {
		t.Fatalf("total = %d remaining = %d", r.PlannedTotalMinor, r.RemainingMinor)
	}
}

func TestValidateLinesPercentSum(t *testing.T) {
	err := ValidateLines([]core.BudgetLine{percent(1, 0.7), percent(2, 0.4)}, 1000, 1000)
	if !errors.Is(err, core.ErrPercentSum) {
		t.Fatalf("expected percent sum error, got %v", err)
	}
	// Exactly 1 passes (epsilon absorbs float noise).
	if err := ValidateLines([]core.BudgetLine{percent(1, 0.3), percent(2, 0.7)}, 1000, 1000); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestValidateLinesFixedOverage(t *testing.T) {
	// Pool 800.00; the 50% line takes 300.00 of the 600.00 base left by the
	// fixed line, so a fixed line of 600.00 overshoots by 100.00: without it
	// the percent line takes 400.00 leaving 400.00.
	lines := []core.BudgetLine{fixed(1, 60000), percent(2, 0.5)}
	err := ValidateLines(lines, 80000, 80000)
	var over *core.OverAllocationError
	if !errors.As(err, &over) {
		t.Fatalf("expected over-allocation error, got %v", err)
	}
	if over.OverByMinor != 20000 {
		t.Fatalf("over by %d, want 20000", over.OverByMinor)
	}

	// Inside the pool everything passes.
	if err := ValidateLines([]core.BudgetLine{fixed(1, 20000), percent(2, 0.5)}, 80000, 100000); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
