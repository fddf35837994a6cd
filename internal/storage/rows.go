package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"fondi/internal/core"
)

const incomeColumns = `id, month_key, income_date, description, amount_minor,
	fund_event_id, created_at, updated_at`

func (r *Repository) GetIncome(ctx context.Context, id int64) (core.Income, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ?`, id)
	in, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, &core.NotFoundError{Entity: "income", ID: strconv.FormatInt(id, 10)}
	}
	return in, err
}

func (r *Repository) ListIncomesByMonth(ctx context.Context, key core.MonthKey) ([]core.Income, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE month_key = ? ORDER BY income_date, id`,
		string(key))
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// IncomeTotalForMonth sums the income rows of a month, the pool the planner
// and the distribution engine measure against.
func (r *Repository) IncomeTotalForMonth(ctx context.Context, key core.MonthKey) (int64, error) {
	var total int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_minor), 0) FROM incomes WHERE month_key = ?`,
		string(key)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("income total: %w", err)
	}
	return total, nil
}

func (r *Repository) UpsertIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	ts := now()
	if in.ID == 0 {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO incomes (month_key, income_date, description, amount_minor,
				fund_event_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(in.MonthKey), in.IncomeDate.ISO(), in.Description, in.AmountMinor,
			nullString(in.FundEventID), formatTime(ts), formatTime(ts))
		if err != nil {
			return core.Income{}, fmt.Errorf("insert income: %w", err)
		}
		in.ID, _ = res.LastInsertId()
		in.CreatedAt, in.UpdatedAt = ts, ts
		return in, nil
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE incomes SET month_key = ?, income_date = ?, description = ?, amount_minor = ?,
			fund_event_id = ?, updated_at = ?
		 WHERE id = ?`,
		string(in.MonthKey), in.IncomeDate.ISO(), in.Description, in.AmountMinor,
		nullString(in.FundEventID), formatTime(ts), in.ID)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Income{}, &core.NotFoundError{Entity: "income", ID: strconv.FormatInt(in.ID, 10)}
	}
	return r.GetIncome(ctx, in.ID)
}

// SetIncomeEventLink points an income row at its mirrored ledger event, or
// clears the link with nil.
func (r *Repository) SetIncomeEventLink(ctx context.Context, id int64, eventID *string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE incomes SET fund_event_id = ?, updated_at = ? WHERE id = ?`,
		nullString(eventID), formatTime(now()), id)
	if err != nil {
		return fmt.Errorf("set income event link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "income", ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

func (r *Repository) DeleteIncome(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "incomes", "income", id)
}

const txColumns = `id, month_key, tx_date, description, category_id, amount_minor,
	fund_event_id, created_at, updated_at`

func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: strconv.FormatInt(id, 10)}
	}
	return t, err
}

func (r *Repository) ListTransactionsByMonth(ctx context.Context, key core.MonthKey) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE month_key = ? ORDER BY tx_date, id`,
		string(key))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SpentByCategory sums a month's transaction rows per category, the "spent"
// side of the leftover computation.
func (r *Repository) SpentByCategory(ctx context.Context, key core.MonthKey) (map[int64]int64, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT category_id, COALESCE(SUM(amount_minor), 0)
		 FROM transactions WHERE month_key = ? GROUP BY category_id`, string(key))
	if err != nil {
		return nil, fmt.Errorf("spent by category: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var cat, total int64
		if err := rows.Scan(&cat, &total); err != nil {
			return nil, fmt.Errorf("scan spent row: %w", err)
		}
		out[cat] = total
	}
	return out, rows.Err()
}

func (r *Repository) UpsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	ts := now()
	if t.ID == 0 {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO transactions (month_key, tx_date, description, category_id,
				amount_minor, fund_event_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(t.MonthKey), t.TxDate.ISO(), t.Description, t.CategoryID, t.AmountMinor,
			nullString(t.FundEventID), formatTime(ts), formatTime(ts))
		if err != nil {
			return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
		}
		t.ID, _ = res.LastInsertId()
		t.CreatedAt, t.UpdatedAt = ts, ts
		return t, nil
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET month_key = ?, tx_date = ?, description = ?, category_id = ?,
			amount_minor = ?, fund_event_id = ?, updated_at = ?
		 WHERE id = ?`,
		string(t.MonthKey), t.TxDate.ISO(), t.Description, t.CategoryID, t.AmountMinor,
		nullString(t.FundEventID), formatTime(ts), t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: strconv.FormatInt(t.ID, 10)}
	}
	return r.GetTransaction(ctx, t.ID)
}

// SetTransactionEventLink points a transaction row at its mirrored ledger
// event, or clears the link with nil.
func (r *Repository) SetTransactionEventLink(ctx context.Context, id int64, eventID *string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET fund_event_id = ?, updated_at = ? WHERE id = ?`,
		nullString(eventID), formatTime(now()), id)
	if err != nil {
		return fmt.Errorf("set transaction event link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "transaction", ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "transactions", "transaction", id)
}

func scanIncome(row rowScanner) (core.Income, error) {
	var (
		in               core.Income
		monthKey, date   string
		eventID          sql.NullString
		created, updated string
	)
	err := row.Scan(&in.ID, &monthKey, &date, &in.Description, &in.AmountMinor,
		&eventID, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Income{}, err
		}
		return core.Income{}, fmt.Errorf("scan income: %w", err)
	}
	in.MonthKey = core.MonthKey(monthKey)
	in.IncomeDate, _ = core.ParseISODate(date)
	in.FundEventID = stringPtr(eventID)
	in.CreatedAt, in.UpdatedAt = parseTime(created), parseTime(updated)
	return in, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                core.Transaction
		monthKey, date   string
		eventID          sql.NullString
		created, updated string
	)
	err := row.Scan(&t.ID, &monthKey, &date, &t.Description, &t.CategoryID,
		&t.AmountMinor, &eventID, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.MonthKey = core.MonthKey(monthKey)
	t.TxDate, _ = core.ParseISODate(date)
	t.FundEventID = stringPtr(eventID)
	t.CreatedAt, t.UpdatedAt = parseTime(created), parseTime(updated)
	return t, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
