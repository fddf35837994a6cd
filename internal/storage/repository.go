// Package storage persists the ledger and budget model in SQLite. Every
// multi-step mutation runs inside one transaction; readers never observe a
// partially replaced event or a half-written budget.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"fondi/internal/cache"
	"fondi/internal/core"
)

// querier is the query surface shared by *sql.DB and *sql.Tx, so repository
// methods run unchanged inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB // nil on a transaction-scoped repository
	q  querier

	// Event types are append-only, so cached lookups never go stale.
	// Transaction-scoped repositories leave this nil: an uncommitted
	// insert must not populate the cache.
	typeCache *cache.LRU[core.EventType]
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// foreign_keys is per-connection in SQLite; setting it through the DSN
	// covers every connection the pool opens, so line cascades always fire.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:        db,
		q:         db,
		typeCache: cache.NewLRU[core.EventType](64, time.Hour),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InTx runs fn against a transaction-scoped view of the repository. Every
// write fn issues commits or rolls back as one unit. Nested calls join the
// enclosing transaction.
func (r *Repository) InTx(ctx context.Context, fn func(repo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&Repository{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error. Inside InTx
// it reuses the enclosing transaction instead of opening a second one.
func (r *Repository) withTx(ctx context.Context, fn func(tx querier) error) error {
	if r.db == nil {
		return fn(r.q)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// now returns the single timestamp used for every write of one mutation.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Migration seeds use datetime('now'), which matches timeLayout;
		// anything else is a programming error surfaced as zero time.
		return time.Time{}
	}
	return t
}
