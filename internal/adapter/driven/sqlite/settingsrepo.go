package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingsStore = (*SettingsRepo)(nil)

// SettingsRepo is the SQLite implementation of the SettingsStore port
// interface. The record is stored as a single JSON document.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo backed by the given DB.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the stored settings, or defaults when none are stored. A legacy
// record is upgraded and written back on first read.
func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	const query = `SELECT record FROM settings WHERE id = 1`
	var raw string
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("%w: get settings: %w", driven.ErrStorage, err)
	}

	record, err := model.DecodeSettingsRecord([]byte(raw))
	if err != nil {
		slog.Warn("settings record unreadable, using defaults", "error", err)
		return model.DefaultSettings(), nil
	}
	if len(record.Skipped) > 0 {
		slog.Warn("settings fields with invalid values ignored", "fields", record.Skipped)
	}

	settings, migrated := record.Upgrade()
	if migrated {
		if err := r.Set(ctx, settings); err != nil {
			return model.Settings{}, fmt.Errorf("persist migrated settings: %w", err)
		}
		slog.Info("settings migrated from legacy notification mode",
			"sound", settings.SoundEnabled,
			"toast", settings.ToastEnabled,
			"speech", settings.SpeechEnabled,
		)
	}

	return settings, nil
}

// Set stores or replaces the settings record.
func (r *SettingsRepo) Set(ctx context.Context, settings model.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	const query = `INSERT OR REPLACE INTO settings (id, record, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, string(data)); err != nil {
		return fmt.Errorf("%w: set settings: %w", driven.ErrStorage, err)
	}
	return nil
}
