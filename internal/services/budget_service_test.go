package services

import (
	"context"
	"errors"
	"testing"

	"fondi/internal/core"
)

func TestSaveBudgetRejectsOverAllocation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	fund := e.seedFund(t, "Spending")
	cat := e.seedCategory(t, "Rent")
	e.seedIncome(t, "2025-02", 80000)
	svc := NewBudgetService(e.repo)

	// Pool is min(100000, 80000) = 80000; a fixed line of 90000 overshoots.
	_, err := svc.SaveBudget(ctx, core.Budget{
		BudgetMonthKey: "2025-03",
		IncomeMonthKey: "2025-02",
		CapMinor:       100000,
		SpendingFundID: fund.ID,
	}, []core.BudgetLine{
		{CategoryID: cat.ID, Alloc: core.FixedAllocation(90000)},
	})
	var over *core.OverAllocationError
	if !errors.As(err, &over) {
		t.Fatalf("err = %v, want OverAllocationError", err)
	}
	if over.OverByMinor != 10000 {
		t.Fatalf("over by = %d, want 10000", over.OverByMinor)
	}
	if _, err := e.repo.GetBudgetByMonthKey(ctx, "2025-03"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("rejected budget must not be stored, got %v", err)
	}
}

func TestSaveBudgetRejectsPercentSum(t *testing.T) {
	e := newEnv(t)
	fund := e.seedFund(t, "Spending")
	a := e.seedCategory(t, "A")
	b := e.seedCategory(t, "B")
	svc := NewBudgetService(e.repo)

	_, err := svc.SaveBudget(context.Background(), core.Budget{
		BudgetMonthKey: "2025-03",
		IncomeMonthKey: "2025-02",
		CapMinor:       100000,
		SpendingFundID: fund.ID,
	}, []core.BudgetLine{
		{CategoryID: a.ID, Alloc: core.PercentAllocation(0.7)},
		{CategoryID: b.ID, Alloc: core.PercentAllocation(0.4)},
	})
	if !errors.Is(err, core.ErrPercentSum) {
		t.Fatalf("err = %v, want ErrPercentSum", err)
	}
}

func TestSaveBudgetPersistsValidLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	fund := e.seedFund(t, "Spending")
	rent := e.seedCategory(t, "Rent")
	rest := e.seedCategory(t, "Everything else")
	e.seedIncome(t, "2025-02", 80000)
	svc := NewBudgetService(e.repo)

	saved, err := svc.SaveBudget(ctx, core.Budget{
		BudgetMonthKey: "2025-03",
		IncomeMonthKey: "2025-02",
		CapMinor:       100000,
		SpendingFundID: fund.ID,
	}, []core.BudgetLine{
		{CategoryID: rent.ID, Alloc: core.FixedAllocation(20000)},
		{CategoryID: rest.ID, Alloc: core.PercentAllocation(0.5)},
	})
	if err != nil {
		t.Fatalf("save budget: %v", err)
	}

	lines, err := e.repo.ListBudgetLines(ctx, saved.ID)
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("stored lines = %d, want 2", len(lines))
	}
}

func TestReport(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	fund := e.seedFund(t, "Spending")
	rent := e.seedCategory(t, "Rent")
	rest := e.seedCategory(t, "Everything else")
	unplanned := e.seedCategory(t, "Unplanned")
	e.seedIncome(t, "2025-02", 80000)
	svc := NewBudgetService(e.repo)

	if _, err := svc.SaveBudget(ctx, core.Budget{
		BudgetMonthKey: "2025-03",
		IncomeMonthKey: "2025-02",
		CapMinor:       100000,
		SpendingFundID: fund.ID,
	}, []core.BudgetLine{
		{CategoryID: rent.ID, Alloc: core.FixedAllocation(20000)},
		{CategoryID: rest.ID, Alloc: core.PercentAllocation(0.5)},
	}); err != nil {
		t.Fatalf("save budget: %v", err)
	}
	e.seedTransaction(t, "2025-03", rent.ID, 20000)
	e.seedTransaction(t, "2025-03", rest.ID, 12500)
	e.seedTransaction(t, "2025-03", unplanned.ID, 1000)

	report, err := svc.Report(ctx, "2025-03")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.SpendablePoolMinor != 80000 || report.PercentBaseMinor != 60000 {
		t.Fatalf("pool/base = %d/%d, want 80000/60000", report.SpendablePoolMinor, report.PercentBaseMinor)
	}
	if report.PlannedTotalMinor != 50000 || report.RemainingMinor != 30000 {
		t.Fatalf("planned/remaining = %d/%d, want 50000/30000", report.PlannedTotalMinor, report.RemainingMinor)
	}
	if report.SpentTotalMinor != 33500 {
		t.Fatalf("spent total = %d, want 33500", report.SpentTotalMinor)
	}
	if report.SurplusBaseMinor != 0 {
		t.Fatalf("surplus base = %d, want 0", report.SurplusBaseMinor)
	}

	byID := make(map[int64]CategoryReport)
	for _, c := range report.Categories {
		byID[c.CategoryID] = c
	}
	if c := byID[rent.ID]; c.PlannedMinor != 20000 || c.SpentMinor != 20000 || c.LeftoverMinor != 0 {
		t.Fatalf("rent = %+v", c)
	}
	if c := byID[rest.ID]; c.PlannedMinor != 30000 || c.SpentMinor != 12500 || c.LeftoverMinor != 17500 {
		t.Fatalf("rest = %+v", c)
	}
	// Spending on a category without a budget line still shows up.
	if c := byID[unplanned.ID]; c.PlannedMinor != 0 || c.SpentMinor != 1000 || c.LeftoverMinor != -1000 {
		t.Fatalf("unplanned = %+v", c)
	}
	if byID[rent.ID].CategoryName != "Rent" {
		t.Fatalf("category name = %q, want Rent", byID[rent.ID].CategoryName)
	}
}
