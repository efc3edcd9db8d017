package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SeenStore = (*SeenRepo)(nil)

// SeenRepo is the SQLite implementation of the SeenStore port interface.
type SeenRepo struct {
	db *DB
}

// NewSeenRepo creates a new SeenRepo backed by the given DB.
func NewSeenRepo(db *DB) *SeenRepo {
	return &SeenRepo{db: db}
}

// Load returns every seen entry ordered by seen_at. Unreadable rows fail the
// whole load with an error wrapping driven.ErrStorage.
func (r *SeenRepo) Load(ctx context.Context) ([]model.SeenEntry, error) {
	const query = `SELECT pr_key, seen_at FROM seen_prs ORDER BY seen_at, pr_key`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: load seen entries: %w", driven.ErrStorage, err)
	}
	defer rows.Close()

	entries := []model.SeenEntry{}
	for rows.Next() {
		var e model.SeenEntry
		var seenAt string
		if err := rows.Scan(&e.Key, &seenAt); err != nil {
			return nil, fmt.Errorf("%w: scan seen entry: %w", driven.ErrStorage, err)
		}
		e.SeenAt, err = parseTime(seenAt)
		if err != nil {
			return nil, fmt.Errorf("%w: parse seen_at for %q: %w", driven.ErrStorage, e.Key, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate seen entries: %w", driven.ErrStorage, err)
	}

	return entries, nil
}

// Save atomically replaces all seen entries in a single transaction. A
// duplicate key keeps its first occurrence.
func (r *SeenRepo) Save(ctx context.Context, entries []model.SeenEntry) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", driven.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_prs`); err != nil {
		return fmt.Errorf("%w: clear seen entries: %w", driven.ErrStorage, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO seen_prs (pr_key, seen_at) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare seen insert: %w", driven.ErrStorage, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Key, formatTime(e.SeenAt)); err != nil {
			return fmt.Errorf("%w: insert seen entry %q: %w", driven.ErrStorage, e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit seen entries: %w", driven.ErrStorage, err)
	}

	return nil
}
