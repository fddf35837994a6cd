package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"fondi/internal/core"
)

const budgetColumns = `id, budget_month_key, income_month_key, cap_minor, notes,
	surplus_handled, leftovers_handled, spending_fund_id, spending_asset_id,
	overage_fund_id, overage_asset_id, created_at, updated_at`

func (r *Repository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, &core.NotFoundError{Entity: "budget", ID: strconv.FormatInt(id, 10)}
	}
	return b, err
}

func (r *Repository) GetBudgetByMonthKey(ctx context.Context, key core.MonthKey) (core.Budget, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE budget_month_key = ?`, string(key))
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, &core.NotFoundError{Entity: "budget", ID: string(key)}
	}
	return b, err
}

func (r *Repository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets ORDER BY budget_month_key`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertBudget writes the budget header and replaces its lines, one
// transaction. The handled flags are not touched here; they belong to the
// distribution engine.
func (r *Repository) UpsertBudget(ctx context.Context, b core.Budget, lines []core.BudgetLine) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	for i, l := range lines {
		if err := l.Validate(); err != nil {
			return core.Budget{}, fmt.Errorf("budget line %d: %w", i, err)
		}
	}

	ts := now()
	err := r.withTx(ctx, func(tx querier) error {
		if b.ID == 0 {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO budgets (budget_month_key, income_month_key, cap_minor, notes,
					surplus_handled, leftovers_handled, spending_fund_id, spending_asset_id,
					overage_fund_id, overage_asset_id, created_at, updated_at)
				 VALUES (?, ?, ?, ?, 0, 0, ?, ?, ?, ?, ?, ?)`,
				string(b.BudgetMonthKey), string(b.IncomeMonthKey), b.CapMinor, b.Notes,
				b.SpendingFundID, nullInt64(b.SpendingAssetID),
				nullInt64(b.OverageFundID), nullInt64(b.OverageAssetID),
				formatTime(ts), formatTime(ts))
			if err != nil {
				return fmt.Errorf("insert budget: %w", err)
			}
			b.ID, _ = res.LastInsertId()
		} else {
			res, err := tx.ExecContext(ctx,
				`UPDATE budgets SET budget_month_key = ?, income_month_key = ?, cap_minor = ?,
					notes = ?, spending_fund_id = ?, spending_asset_id = ?, overage_fund_id = ?,
					overage_asset_id = ?, updated_at = ?
				 WHERE id = ?`,
				string(b.BudgetMonthKey), string(b.IncomeMonthKey), b.CapMinor, b.Notes,
				b.SpendingFundID, nullInt64(b.SpendingAssetID),
				nullInt64(b.OverageFundID), nullInt64(b.OverageAssetID),
				formatTime(ts), b.ID)
			if err != nil {
				return fmt.Errorf("update budget: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return &core.NotFoundError{Entity: "budget", ID: strconv.FormatInt(b.ID, 10)}
			}
		}

		// Replace all lines, preserving created_at per (budget, category).
		existing := make(map[int64]string)
		rows, err := tx.QueryContext(ctx,
			`SELECT category_id, created_at FROM budget_lines WHERE budget_id = ?`, b.ID)
		if err != nil {
			return fmt.Errorf("load budget lines: %w", err)
		}
		for rows.Next() {
			var cat int64
			var created string
			if err := rows.Scan(&cat, &created); err != nil {
				rows.Close()
				return fmt.Errorf("scan budget line: %w", err)
			}
			existing[cat] = created
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM budget_lines WHERE budget_id = ?`, b.ID); err != nil {
			return fmt.Errorf("clear budget lines: %w", err)
		}
		for _, l := range lines {
			created := formatTime(ts)
			if prev, ok := existing[l.CategoryID]; ok {
				created = prev
			}
			var amount sql.NullInt64
			var percent sql.NullFloat64
			switch l.Alloc.Kind() {
			case core.AllocationFixed:
				amount = sql.NullInt64{Int64: l.Alloc.AmountMinor(), Valid: true}
			case core.AllocationPercent:
				percent = sql.NullFloat64{Float64: l.Alloc.Percent(), Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO budget_lines (budget_id, category_id, kind, amount_minor, percent,
					created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				b.ID, l.CategoryID, string(l.Alloc.Kind()), amount, percent,
				created, formatTime(ts)); err != nil {
				return fmt.Errorf("insert budget line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return r.GetBudget(ctx, b.ID)
}

func (r *Repository) ListBudgetLines(ctx context.Context, budgetID int64) ([]core.BudgetLine, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT budget_id, category_id, kind, amount_minor, percent, created_at, updated_at
		 FROM budget_lines WHERE budget_id = ? ORDER BY category_id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget lines: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetLine
	for rows.Next() {
		var (
			l                core.BudgetLine
			kind             string
			amount           sql.NullInt64
			percent          sql.NullFloat64
			created, updated string
		)
		if err := rows.Scan(&l.BudgetID, &l.CategoryID, &kind, &amount, &percent,
			&created, &updated); err != nil {
			return nil, fmt.Errorf("scan budget line: %w", err)
		}
		switch core.AllocationKind(kind) {
		case core.AllocationFixed:
			l.Alloc = core.FixedAllocation(amount.Int64)
		case core.AllocationPercent:
			l.Alloc = core.PercentAllocation(percent.Float64)
		}
		l.CreatedAt, l.UpdatedAt = parseTime(created), parseTime(updated)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteBudget(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "budgets", "budget", id)
}

// SetHandledFlags persists the distribution idempotency markers. Callers
// only invoke this when a flag actually flipped.
func (r *Repository) SetHandledFlags(ctx context.Context, budgetID int64, surplus, leftovers bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE budgets SET surplus_handled = ?, leftovers_handled = ?, updated_at = ?
		 WHERE id = ?`,
		boolToInt(surplus), boolToInt(leftovers), formatTime(now()), budgetID)
	if err != nil {
		return fmt.Errorf("set handled flags: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "budget", ID: strconv.FormatInt(budgetID, 10)}
	}
	return nil
}

const ruleColumns = `id, budget_id, source_type, category_id, fund_id, asset_id,
	allocation_type, amount_minor, percent, created_at, updated_at`

func (r *Repository) ListRulesByBudget(ctx context.Context, budgetID int64) ([]core.DistributionRule, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM distribution WHERE budget_id = ? ORDER BY id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list distribution rules: %w", err)
	}
	defer rows.Close()

	var out []core.DistributionRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertRule(ctx context.Context, rule core.DistributionRule) (core.DistributionRule, error) {
	if err := rule.Validate(); err != nil {
		return core.DistributionRule{}, err
	}
	var amount sql.NullInt64
	var percent sql.NullFloat64
	switch rule.Alloc.Kind() {
	case core.AllocationFixed:
		amount = sql.NullInt64{Int64: rule.Alloc.AmountMinor(), Valid: true}
	case core.AllocationPercent:
		percent = sql.NullFloat64{Float64: rule.Alloc.Percent(), Valid: true}
	}

	ts := now()
	if rule.ID == 0 {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO distribution (budget_id, source_type, category_id, fund_id, asset_id,
				allocation_type, amount_minor, percent, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rule.BudgetID, string(rule.Source), nullInt64(rule.CategoryID), rule.FundID,
			nullInt64(rule.AssetID), string(rule.Alloc.Kind()), amount, percent,
			formatTime(ts), formatTime(ts))
		if err != nil {
			return core.DistributionRule{}, fmt.Errorf("insert distribution rule: %w", err)
		}
		rule.ID, _ = res.LastInsertId()
		rule.CreatedAt, rule.UpdatedAt = ts, ts
		return rule, nil
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE distribution SET budget_id = ?, source_type = ?, category_id = ?, fund_id = ?,
			asset_id = ?, allocation_type = ?, amount_minor = ?, percent = ?, updated_at = ?
		 WHERE id = ?`,
		rule.BudgetID, string(rule.Source), nullInt64(rule.CategoryID), rule.FundID,
		nullInt64(rule.AssetID), string(rule.Alloc.Kind()), amount, percent,
		formatTime(ts), rule.ID)
	if err != nil {
		return core.DistributionRule{}, fmt.Errorf("update distribution rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.DistributionRule{}, &core.NotFoundError{Entity: "distribution rule", ID: strconv.FormatInt(rule.ID, 10)}
	}
	rule.UpdatedAt = ts
	return rule, nil
}

func (r *Repository) DeleteRule(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "distribution", "distribution rule", id)
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                          core.Budget
		budgetKey, incomeKey       string
		surplus, leftovers         int64
		spendingAsset              sql.NullInt64
		overageFund, overageAsset  sql.NullInt64
		created, updated           string
	)
	err := row.Scan(&b.ID, &budgetKey, &incomeKey, &b.CapMinor, &b.Notes,
		&surplus, &leftovers, &b.SpendingFundID, &spendingAsset,
		&overageFund, &overageAsset, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Budget{}, err
		}
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	b.BudgetMonthKey = core.MonthKey(budgetKey)
	b.IncomeMonthKey = core.MonthKey(incomeKey)
	b.SurplusHandled = surplus != 0
	b.LeftoversHandled = leftovers != 0
	b.SpendingAssetID = int64Ptr(spendingAsset)
	b.OverageFundID = int64Ptr(overageFund)
	b.OverageAssetID = int64Ptr(overageAsset)
	b.CreatedAt, b.UpdatedAt = parseTime(created), parseTime(updated)
	return b, nil
}

func scanRule(row rowScanner) (core.DistributionRule, error) {
	var (
		rule             core.DistributionRule
		source, alloc    string
		categoryID       sql.NullInt64
		assetID          sql.NullInt64
		amount           sql.NullInt64
		percent          sql.NullFloat64
		created, updated string
	)
	err := row.Scan(&rule.ID, &rule.BudgetID, &source, &categoryID, &rule.FundID,
		&assetID, &alloc, &amount, &percent, &created, &updated)
	if err != nil {
		return core.DistributionRule{}, fmt.Errorf("scan distribution rule: %w", err)
	}
	rule.Source = core.DistributionSource(source)
	rule.CategoryID = int64Ptr(categoryID)
	rule.AssetID = int64Ptr(assetID)
	switch core.AllocationKind(alloc) {
	case core.AllocationFixed:
		rule.Alloc = core.FixedAllocation(amount.Int64)
	case core.AllocationPercent:
		rule.Alloc = core.PercentAllocation(percent.Float64)
	}
	rule.CreatedAt, rule.UpdatedAt = parseTime(created), parseTime(updated)
	return rule, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
