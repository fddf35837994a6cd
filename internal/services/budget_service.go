package services

import (
	"context"
	"fmt"
	"sort"

	"fondi/internal/core"
	"fondi/internal/planner"
	"fondi/internal/storage"
)

// BudgetService wraps budget persistence with allocation validation and
// builds the month report callers render.
type BudgetService struct {
	storage *storage.Repository
}

func NewBudgetService(st *storage.Repository) *BudgetService {
	return &BudgetService{storage: st}
}

// SaveBudget validates the allocation lines against the month's income and
// cap before persisting. Over-allocated or over-percent line sets never
// reach storage.
func (s *BudgetService) SaveBudget(ctx context.Context, b core.Budget, lines []core.BudgetLine) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	income, err := s.storage.IncomeTotalForMonth(ctx, b.IncomeMonthKey)
	if err != nil {
		return core.Budget{}, fmt.Errorf("total income: %w", err)
	}
	if err := planner.ValidateLines(lines, income, b.CapMinor); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.storage.UpsertBudget(ctx, b, lines)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return saved, nil
}

// CategoryReport is one category's planned/spent/leftover row of a month
// report.
type CategoryReport struct {
	CategoryID    int64
	CategoryName  string
	PlannedMinor  int64
	SpentMinor    int64
	LeftoverMinor int64
}

// MonthReport is a budget month rendered for callers: the plan, actual
// spending per category and the surplus the distribution engine would see.
type MonthReport struct {
	Budget             core.Budget
	TotalIncomeMinor   int64
	SpendablePoolMinor int64
	PercentBaseMinor   int64
	PlannedTotalMinor  int64
	SpentTotalMinor    int64
	RemainingMinor     int64
	SurplusBaseMinor   int64
	OverAllocated      bool
	Categories         []CategoryReport
}

// Report assembles the month report for a budget month. Categories with a
// budget line or spending appear; spending on a category without a line
// shows with planned zero.
func (s *BudgetService) Report(ctx context.Context, budgetMonthKey core.MonthKey) (MonthReport, error) {
	budget, err := s.storage.GetBudgetByMonthKey(ctx, budgetMonthKey)
	if err != nil {
		return MonthReport{}, fmt.Errorf("load budget: %w", err)
	}
	lines, err := s.storage.ListBudgetLines(ctx, budget.ID)
	if err != nil {
		return MonthReport{}, fmt.Errorf("load budget lines: %w", err)
	}
	income, err := s.storage.IncomeTotalForMonth(ctx, budget.IncomeMonthKey)
	if err != nil {
		return MonthReport{}, fmt.Errorf("total income: %w", err)
	}
	spent, err := s.storage.SpentByCategory(ctx, budget.BudgetMonthKey)
	if err != nil {
		return MonthReport{}, fmt.Errorf("spent by category: %w", err)
	}
	categories, err := s.storage.ListCategories(ctx)
	if err != nil {
		return MonthReport{}, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	plan := planner.Plan(lines, income, budget.CapMinor)

	seen := make(map[int64]bool, len(lines))
	catIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		seen[l.CategoryID] = true
		catIDs = append(catIDs, l.CategoryID)
	}
	for id := range spent {
		if !seen[id] {
			catIDs = append(catIDs, id)
		}
	}
	sort.Slice(catIDs, func(i, j int) bool { return catIDs[i] < catIDs[j] })

	report := MonthReport{
		Budget:             budget,
		TotalIncomeMinor:   income,
		SpendablePoolMinor: plan.SpendablePoolMinor,
		PercentBaseMinor:   plan.PercentBaseMinor,
		PlannedTotalMinor:  plan.PlannedTotalMinor,
		RemainingMinor:     plan.RemainingMinor,
		OverAllocated:      plan.OverAllocated,
	}
	report.SurplusBaseMinor = income - plan.SpendablePoolMinor
	if report.SurplusBaseMinor < 0 {
		report.SurplusBaseMinor = 0
	}
	for _, id := range catIDs {
		planned := plan.Planned(id)
		report.Categories = append(report.Categories, CategoryReport{
			CategoryID:    id,
			CategoryName:  names[id],
			PlannedMinor:  planned,
			SpentMinor:    spent[id],
			LeftoverMinor: planned - spent[id],
		})
		report.SpentTotalMinor += spent[id]
	}
	return report, nil
}
