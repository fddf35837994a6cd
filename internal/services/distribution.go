package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"fondi/internal/amqp"
	"fondi/internal/core"
	"fondi/internal/planner"
	"fondi/internal/storage"
)

// RunMode selects which part of a budget month a distribution run settles.
type RunMode string

const (
	ModeSurplus   RunMode = "SURPLUS"
	ModeLeftovers RunMode = "LEFTOVERS"
	ModeAll       RunMode = "ALL"
)

func (m RunMode) includesSurplus() bool   { return m == ModeSurplus || m == ModeAll }
func (m RunMode) includesLeftovers() bool { return m == ModeLeftovers || m == ModeAll }

func (m RunMode) Validate() error {
	switch m {
	case ModeSurplus, ModeLeftovers, ModeAll:
		return nil
	}
	return fmt.Errorf("unknown run mode %q", string(m))
}

// RunResult reports what a distribution run posted.
type RunResult struct {
	SurplusEventID   string
	SurplusMinor     int64
	LeftoversEventID string
	LeftoversMinor   int64
	// OverageMinor is the negative amount posted against the overage asset
	// when the month was overspent overall, zero otherwise.
	OverageMinor int64
	// SkippedCategories lists categories whose rule group staged more than
	// the category's leftover and was therefore not posted.
	SkippedCategories []int64
}

// DistributionEngine turns a budget month's surplus and category leftovers
// into ledger events, routed by the budget's distribution rules. Handled
// flags on the budget make runs idempotent unless forced.
type DistributionEngine struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
}

func NewDistributionEngine(st *storage.Repository, amqpClient *amqp.Client) *DistributionEngine {
	return &DistributionEngine{
		storage:    st,
		amqpClient: amqpClient,
	}
}

// surplusMemo and leftoversMemo are the exact memo strings the engine writes
// and later looks events up by. They must stay stable across versions or
// Undo stops finding old runs.
func surplusMemo(key core.MonthKey) string   { return fmt.Sprintf("Budget surplus %s", key) }
func leftoversMemo(key core.MonthKey) string { return fmt.Sprintf("Budget leftovers %s", key) }

// Run settles the given mode for a budget month. A mode whose handled flag
// is already set is refused without force. In ALL mode a sub-mode that is
// not runnable is skipped as long as the other one runs. The whole run,
// events plus flag flips, commits as one transaction.
func (e *DistributionEngine) Run(ctx context.Context, budgetMonthKey core.MonthKey, mode RunMode, force bool) (RunResult, error) {
	var res RunResult
	if err := mode.Validate(); err != nil {
		return res, err
	}

	var changes []ledgerChange
	err := e.storage.InTx(ctx, func(repo *storage.Repository) error {
		budget, err := repo.GetBudgetByMonthKey(ctx, budgetMonthKey)
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}
		lines, err := repo.ListBudgetLines(ctx, budget.ID)
		if err != nil {
			return fmt.Errorf("load budget lines: %w", err)
		}
		income, err := repo.IncomeTotalForMonth(ctx, budget.IncomeMonthKey)
		if err != nil {
			return fmt.Errorf("total income: %w", err)
		}
		plan := planner.Plan(lines, income, budget.CapMinor)

		rules, err := repo.ListRulesByBudget(ctx, budget.ID)
		if err != nil {
			return fmt.Errorf("load distribution rules: %w", err)
		}
		var surplusRules, categoryRules []core.DistributionRule
		for _, r := range rules {
			if r.Source == core.SourceSurplus {
				surplusRules = append(surplusRules, r)
			} else {
				categoryRules = append(categoryRules, r)
			}
		}

		surplusBase := income - plan.SpendablePoolMinor
		if surplusBase < 0 {
			surplusBase = 0
		}

		var surplusBlocked, leftoversBlocked error
		if mode.includesSurplus() {
			surplusBlocked = surplusRunnable(budget, surplusRules, surplusBase, force)
		}
		if mode.includesLeftovers() {
			leftoversBlocked = leftoversRunnable(budget, categoryRules, force)
		}
		switch mode {
		case ModeSurplus:
			if surplusBlocked != nil {
				return surplusBlocked
			}
		case ModeLeftovers:
			if leftoversBlocked != nil {
				return leftoversBlocked
			}
		case ModeAll:
			if surplusBlocked != nil && leftoversBlocked != nil {
				return errors.Join(surplusBlocked, leftoversBlocked)
			}
		}

		ranSurplus := false
		if mode.includesSurplus() && surplusBlocked == nil {
			if err := runSurplus(ctx, repo, budget, surplusRules, surplusBase, &res, &changes); err != nil {
				return err
			}
			ranSurplus = true
		} else if surplusBlocked != nil {
			slog.InfoContext(ctx, "Skipping surplus distribution",
				"budget_month", string(budgetMonthKey), "reason", surplusBlocked)
		}

		ranLeftovers := false
		if mode.includesLeftovers() && leftoversBlocked == nil {
			if err := runLeftovers(ctx, repo, budget, categoryRules, plan, &res, &changes); err != nil {
				return err
			}
			ranLeftovers = true
		} else if leftoversBlocked != nil {
			slog.InfoContext(ctx, "Skipping leftovers distribution",
				"budget_month", string(budgetMonthKey), "reason", leftoversBlocked)
		}

		newSurplus := budget.SurplusHandled || ranSurplus
		newLeftovers := budget.LeftoversHandled || ranLeftovers
		if newSurplus != budget.SurplusHandled || newLeftovers != budget.LeftoversHandled {
			if err := repo.SetHandledFlags(ctx, budget.ID, newSurplus, newLeftovers); err != nil {
				return fmt.Errorf("set handled flags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return RunResult{}, err
	}
	publishChanges(ctx, e.amqpClient, changes)
	return res, nil
}

func surplusRunnable(budget core.Budget, rules []core.DistributionRule, surplusBase int64, force bool) error {
	if budget.SurplusHandled && !force {
		return fmt.Errorf("surplus for %s: %w", budget.BudgetMonthKey, core.ErrAlreadyHandled)
	}
	if len(rules) == 0 {
		return fmt.Errorf("surplus for %s: %w", budget.BudgetMonthKey, core.ErrNoRules)
	}
	if surplusBase <= 0 {
		return fmt.Errorf("surplus for %s: %w", budget.BudgetMonthKey, core.ErrNoSurplus)
	}
	return nil
}

func leftoversRunnable(budget core.Budget, categoryRules []core.DistributionRule, force bool) error {
	if budget.LeftoversHandled && !force {
		return fmt.Errorf("leftovers for %s: %w", budget.BudgetMonthKey, core.ErrAlreadyHandled)
	}
	if len(categoryRules) == 0 && budget.OverageFundID == nil {
		return fmt.Errorf("leftovers for %s: %w", budget.BudgetMonthKey, core.ErrNoRules)
	}
	return nil
}

type stagedAmount struct {
	rule        core.DistributionRule
	amountMinor int64
}

// stageAmounts resolves each rule's allocation against the pool, dropping
// non-positive results. The second return is the staged total.
func stageAmounts(rules []core.DistributionRule, poolMinor int64) ([]stagedAmount, int64) {
	var staged []stagedAmount
	var total int64
	for _, r := range rules {
		amt := r.Alloc.Planned(poolMinor)
		if amt <= 0 {
			continue
		}
		staged = append(staged, stagedAmount{rule: r, amountMinor: amt})
		total += amt
	}
	return staged, total
}

func runSurplus(ctx context.Context, repo *storage.Repository, budget core.Budget, rules []core.DistributionRule, surplusBase int64, res *RunResult, changes *[]ledgerChange) error {
	staged, total := stageAmounts(rules, surplusBase)
	if total > surplusBase {
		return &core.OverAllocationError{Scope: "surplus", OverByMinor: total - surplusBase}
	}

	resolver := NewCashResolver(repo)
	var lines []core.FundEventLine
	for _, s := range staged {
		asset, err := resolver.ResolveOrCreateCashAsset(ctx, s.rule.FundID, s.rule.AssetID)
		if err != nil {
			return fmt.Errorf("resolve cash asset for rule %d: %w", s.rule.ID, err)
		}
		lines = append(lines, core.NewAssetMoneyLine(asset.ID, s.amountMinor))
	}
	if len(lines) == 0 {
		return nil
	}

	eventID, err := postBatchEvent(ctx, repo, budget.BudgetMonthKey, surplusMemo(budget.BudgetMonthKey), lines, changes)
	if err != nil {
		return err
	}
	res.SurplusEventID = eventID
	res.SurplusMinor = total

	slog.InfoContext(ctx, "Distributed budget surplus",
		"budget_month", string(budget.BudgetMonthKey),
		"event_id", eventID,
		"amount", core.FormatMinor(total))
	return nil
}

func runLeftovers(ctx context.Context, repo *storage.Repository, budget core.Budget, categoryRules []core.DistributionRule, plan planner.Result, res *RunResult, changes *[]ledgerChange) error {
	spent, err := repo.SpentByCategory(ctx, budget.BudgetMonthKey)
	if err != nil {
		return fmt.Errorf("spent by category: %w", err)
	}

	byCategory := make(map[int64][]core.DistributionRule)
	for _, r := range categoryRules {
		byCategory[*r.CategoryID] = append(byCategory[*r.CategoryID], r)
	}
	catIDs := make([]int64, 0, len(byCategory))
	for id := range byCategory {
		catIDs = append(catIDs, id)
	}
	sort.Slice(catIDs, func(i, j int) bool { return catIDs[i] < catIDs[j] })

	resolver := NewCashResolver(repo)
	var lines []core.FundEventLine
	var posted int64
	for _, catID := range catIDs {
		remaining := plan.Planned(catID) - spent[catID]
		if remaining <= 0 {
			continue
		}
		staged, total := stageAmounts(byCategory[catID], remaining)
		if total > remaining {
			slog.WarnContext(ctx, "Category rules overshoot leftover, skipping group",
				"budget_month", string(budget.BudgetMonthKey),
				"category_id", catID,
				"over_by", core.FormatMinor(total-remaining))
			res.SkippedCategories = append(res.SkippedCategories, catID)
			continue
		}
		for _, s := range staged {
			asset, err := resolver.ResolveOrCreateCashAsset(ctx, s.rule.FundID, s.rule.AssetID)
			if err != nil {
				return fmt.Errorf("resolve cash asset for rule %d: %w", s.rule.ID, err)
			}
			lines = append(lines, core.NewAssetMoneyLine(asset.ID, s.amountMinor))
			posted += s.amountMinor
		}
	}

	var totalSpent int64
	for _, v := range spent {
		totalSpent += v
	}
	if totalSpent > plan.PlannedTotalMinor && budget.OverageFundID != nil {
		shortfall := totalSpent - plan.PlannedTotalMinor
		asset, err := resolver.ResolveOrCreateCashAsset(ctx, *budget.OverageFundID, budget.OverageAssetID)
		if err != nil {
			return fmt.Errorf("resolve overage cash asset: %w", err)
		}
		lines = append(lines, core.NewAssetMoneyLine(asset.ID, -shortfall))
		res.OverageMinor = -shortfall
	}
	if len(lines) == 0 {
		return nil
	}

	eventID, err := postBatchEvent(ctx, repo, budget.BudgetMonthKey, leftoversMemo(budget.BudgetMonthKey), lines, changes)
	if err != nil {
		return err
	}
	res.LeftoversEventID = eventID
	res.LeftoversMinor = posted

	slog.InfoContext(ctx, "Distributed budget leftovers",
		"budget_month", string(budget.BudgetMonthKey),
		"event_id", eventID,
		"amount", core.FormatMinor(posted),
		"overage", core.FormatMinor(res.OverageMinor))
	return nil
}

// postBatchEvent writes one BUDGET_DISTRIBUTION event. A previous run with
// the same memo is replaced in place rather than duplicated, which keeps a
// forced re-run from double-posting.
func postBatchEvent(ctx context.Context, repo *storage.Repository, monthKey core.MonthKey, memo string, lines []core.FundEventLine, changes *[]ledgerChange) (string, error) {
	typ, err := repo.EnsureEventType(ctx, core.EventTypeBudgetDistribution)
	if err != nil {
		return "", fmt.Errorf("ensure event type: %w", err)
	}
	existing, err := repo.ListEventIDsByTypeAndMemo(ctx, typ.ID, memo)
	if err != nil {
		return "", fmt.Errorf("find previous run: %w", err)
	}

	ev := core.FundEvent{EventTypeID: typ.ID, EventDate: monthKey.LastDate(), Memo: memo}
	if len(existing) > 0 {
		ev.ID = existing[0]
	}
	stored, _, err := repo.UpsertEvent(ctx, ev, lines)
	if err != nil {
		return "", fmt.Errorf("post distribution event: %w", err)
	}

	*changes = append(*changes, ledgerChange{eventID: stored.ID, change: amqp.ChangeUpserted, monthKey: monthKey})
	return stored.ID, nil
}

// Undo removes the events the given mode posted for a budget month and
// resets its handled flags. Undo with nothing to delete still resets the
// flags and succeeds.
func (e *DistributionEngine) Undo(ctx context.Context, budgetMonthKey core.MonthKey, mode RunMode) (int, error) {
	if err := mode.Validate(); err != nil {
		return 0, err
	}

	var memos []string
	if mode.includesSurplus() {
		memos = append(memos, surplusMemo(budgetMonthKey))
	}
	if mode.includesLeftovers() {
		memos = append(memos, leftoversMemo(budgetMonthKey))
	}

	deleted := 0
	var changes []ledgerChange
	err := e.storage.InTx(ctx, func(repo *storage.Repository) error {
		budget, err := repo.GetBudgetByMonthKey(ctx, budgetMonthKey)
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}

		typ, err := repo.GetEventTypeByName(ctx, core.EventTypeBudgetDistribution)
		switch {
		case errors.Is(err, core.ErrNotFound):
			// Type never created means no run ever posted; only flags remain.
		case err != nil:
			return fmt.Errorf("load event type: %w", err)
		default:
			for _, memo := range memos {
				ids, err := repo.ListEventIDsByTypeAndMemo(ctx, typ.ID, memo)
				if err != nil {
					return fmt.Errorf("find events for %q: %w", memo, err)
				}
				for _, id := range ids {
					if err := repo.DeleteEvent(ctx, id); err != nil && !errors.Is(err, core.ErrNotFound) {
						return fmt.Errorf("delete event %s: %w", id, err)
					}
					deleted++
					changes = append(changes, ledgerChange{eventID: id, change: amqp.ChangeDeleted, monthKey: budgetMonthKey})
				}
			}
		}

		newSurplus := budget.SurplusHandled && !mode.includesSurplus()
		newLeftovers := budget.LeftoversHandled && !mode.includesLeftovers()
		if newSurplus != budget.SurplusHandled || newLeftovers != budget.LeftoversHandled {
			if err := repo.SetHandledFlags(ctx, budget.ID, newSurplus, newLeftovers); err != nil {
				return fmt.Errorf("reset handled flags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	publishChanges(ctx, e.amqpClient, changes)

	slog.InfoContext(ctx, "Undid distribution run",
		"budget_month", string(budgetMonthKey),
		"mode", string(mode),
		"events_deleted", deleted)
	return deleted, nil
}
