package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"fondi/internal/core"
)

// Reference tables share one protocol: list, get by id, get by name, keyed
// upsert preserving created_at, delete failing with NotFound when absent.

func (r *Repository) ListFunds(ctx context.Context) ([]core.Fund, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, notes, created_at, updated_at FROM funds ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	defer rows.Close()

	var out []core.Fund
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repository) GetFund(ctx context.Context, id int64) (core.Fund, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, notes, created_at, updated_at FROM funds WHERE id = ?`, id)
	f, err := scanFund(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Fund{}, &core.NotFoundError{Entity: "fund", ID: strconv.FormatInt(id, 10)}
	}
	return f, err
}

func (r *Repository) GetFundByName(ctx context.Context, name string) (core.Fund, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, notes, created_at, updated_at FROM funds WHERE name = ?`, name)
	f, err := scanFund(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Fund{}, &core.NotFoundError{Entity: "fund", ID: name}
	}
	return f, err
}

func (r *Repository) UpsertFund(ctx context.Context, f core.Fund) (core.Fund, error) {
	if err := f.Validate(); err != nil {
		return core.Fund{}, err
	}
	ts := now()
	if f.ID == 0 {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO funds (name, notes, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			f.Name, f.Notes, formatTime(ts), formatTime(ts))
		if err != nil {
			return core.Fund{}, fmt.Errorf("insert fund: %w", err)
		}
		f.ID, _ = res.LastInsertId()
		f.CreatedAt, f.UpdatedAt = ts, ts
		return f, nil
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE funds SET name = ?, notes = ?, updated_at = ? WHERE id = ?`,
		f.Name, f.Notes, formatTime(ts), f.ID)
	if err != nil {
		return core.Fund{}, fmt.Errorf("update fund: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Fund{}, &core.NotFoundError{Entity: "fund", ID: strconv.FormatInt(f.ID, 10)}
	}
	return r.GetFund(ctx, f.ID)
}

func (r *Repository) DeleteFund(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "funds", "fund", id)
}

func (r *Repository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, currency, notes, created_at, updated_at FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, currency, notes, created_at, updated_at FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: strconv.FormatInt(id, 10)}
	}
	return a, err
}

func (r *Repository) UpsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	ts := now()
	if a.ID == 0 {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO accounts (name, currency, notes, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			a.Name, a.Currency, a.Notes, formatTime(ts), formatTime(ts))
		if err != nil {
			return core.Account{}, fmt.Errorf("insert account: %w", err)
		}
		a.ID, _ = res.LastInsertId()
		a.CreatedAt, a.UpdatedAt = ts, ts
		return a, nil
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET name = ?, currency = ?, notes = ?, updated_at = ? WHERE id = ?`,
		a.Name, a.Currency, a.Notes, formatTime(ts), a.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: strconv.FormatInt(a.ID, 10)}
	}
	return r.GetAccount(ctx, a.ID)
}

func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "accounts", "account", id)
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var created, updated string
		if err := rows.Scan(&c.ID, &c.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	var created, updated string
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
	return c, nil
}

func (r *Repository) UpsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	ts := now()
	if c.ID == 0 {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO categories (name, created_at, updated_at) VALUES (?, ?, ?)`,
			c.Name, formatTime(ts), formatTime(ts))
		if err != nil {
			return core.Category{}, fmt.Errorf("insert category: %w", err)
		}
		c.ID, _ = res.LastInsertId()
		c.CreatedAt, c.UpdatedAt = ts, ts
		return c, nil
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, updated_at = ? WHERE id = ?`,
		c.Name, formatTime(ts), c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: strconv.FormatInt(c.ID, 10)}
	}
	return r.GetCategory(ctx, c.ID)
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "categories", "category", id)
}

func (r *Repository) ListEventTypes(ctx context.Context) ([]core.EventType, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM event_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	defer rows.Close()

	var out []core.EventType
	for rows.Next() {
		var t core.EventType
		var created, updated string
		if err := rows.Scan(&t.ID, &t.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan event type: %w", err)
		}
		t.CreatedAt, t.UpdatedAt = parseTime(created), parseTime(updated)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) GetEventTypeByName(ctx context.Context, name string) (core.EventType, error) {
	if r.typeCache != nil {
		if t, ok := r.typeCache.Get(name); ok {
			return t, nil
		}
	}
	var t core.EventType
	var created, updated string
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM event_types WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.EventType{}, &core.NotFoundError{Entity: "event type", ID: name}
	}
	if err != nil {
		return core.EventType{}, fmt.Errorf("get event type: %w", err)
	}
	t.CreatedAt, t.UpdatedAt = parseTime(created), parseTime(updated)
	if r.typeCache != nil {
		r.typeCache.Set(name, t)
	}
	return t, nil
}

// EnsureEventType returns the named event type, creating it if absent.
func (r *Repository) EnsureEventType(ctx context.Context, name string) (core.EventType, error) {
	t, err := r.GetEventTypeByName(ctx, name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.EventType{}, err
	}
	ts := now()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO event_types (name, created_at, updated_at) VALUES (?, ?, ?)`,
		name, formatTime(ts), formatTime(ts))
	if err != nil {
		return core.EventType{}, fmt.Errorf("insert event type: %w", err)
	}
	id, _ := res.LastInsertId()
	t = core.EventType{ID: id, Name: name, CreatedAt: ts, UpdatedAt: ts}
	if r.typeCache != nil {
		r.typeCache.Set(name, t)
	}
	return t, nil
}

func (r *Repository) deleteByID(ctx context.Context, table, entity string, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: entity, ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFund(row rowScanner) (core.Fund, error) {
	var f core.Fund
	var created, updated string
	if err := row.Scan(&f.ID, &f.Name, &f.Notes, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Fund{}, err
		}
		return core.Fund{}, fmt.Errorf("scan fund: %w", err)
	}
	f.CreatedAt, f.UpdatedAt = parseTime(created), parseTime(updated)
	return f, nil
}

func scanAccount(row rowScanner) (core.Account, error) {
	var a core.Account
	var created, updated string
	if err := row.Scan(&a.ID, &a.Name, &a.Currency, &a.Notes, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, err
		}
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.CreatedAt, a.UpdatedAt = parseTime(created), parseTime(updated)
	return a, nil
}
