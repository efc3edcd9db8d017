package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SnoozeStore = (*SnoozeRepo)(nil)

const snoozeKey = "snooze_until"

// SnoozeRepo is the SQLite implementation of the SnoozeStore port interface,
// kept as one row of the app_state table.
type SnoozeRepo struct {
	db *DB
}

// NewSnoozeRepo creates a new SnoozeRepo backed by the given DB.
func NewSnoozeRepo(db *DB) *SnoozeRepo {
	return &SnoozeRepo{db: db}
}

// SnoozeUntil returns the stored deadline, or the zero time when none is set.
func (r *SnoozeRepo) SnoozeUntil(ctx context.Context) (time.Time, error) {
	const query = `SELECT value FROM app_state WHERE key = ?`
	var raw string
	err := r.db.Reader.QueryRowContext(ctx, query, snoozeKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && raw == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: get snooze: %w", driven.ErrStorage, err)
	}

	until, err := parseTime(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse snooze: %w", driven.ErrStorage, err)
	}
	return until, nil
}

// SetSnoozeUntil stores the deadline. The zero time clears the snooze.
func (r *SnoozeRepo) SetSnoozeUntil(ctx context.Context, until time.Time) error {
	if until.IsZero() {
		const query = `DELETE FROM app_state WHERE key = ?`
		if _, err := r.db.Writer.ExecContext(ctx, query, snoozeKey); err != nil {
			return fmt.Errorf("%w: clear snooze: %w", driven.ErrStorage, err)
		}
		return nil
	}

	const query = `INSERT OR REPLACE INTO app_state (key, value) VALUES (?, ?)`
	if _, err := r.db.Writer.ExecContext(ctx, query, snoozeKey, formatTime(until)); err != nil {
		return fmt.Errorf("%w: set snooze: %w", driven.ErrStorage, err)
	}
	return nil
}
