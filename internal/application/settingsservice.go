package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// ConnectionResult is the outcome of a token test.
type ConnectionResult struct {
	Success  bool
	Username string
	Message  string
}

// SettingsService is the write boundary for user preferences, the GitHub
// token, and the snooze deadline. Everything it persists is validated first.
type SettingsService struct {
	settings  driven.SettingsStore
	secrets   driven.SecretStore
	snooze    driven.SnoozeStore
	connector driven.GitHubConnector
	provider  *PRSourceProvider
	onChange  func(model.Settings)
}

// NewSettingsService creates a SettingsService. onChange, if non-nil, is
// called after settings are saved.
func NewSettingsService(
	settings driven.SettingsStore,
	secrets driven.SecretStore,
	snooze driven.SnoozeStore,
	connector driven.GitHubConnector,
	provider *PRSourceProvider,
	onChange func(model.Settings),
) *SettingsService {
	return &SettingsService{
		settings:  settings,
		secrets:   secrets,
		snooze:    snooze,
		connector: connector,
		provider:  provider,
		onChange:  onChange,
	}
}

// SetOnChange replaces the settings-saved hook.
func (s *SettingsService) SetOnChange(onChange func(model.Settings)) {
	s.onChange = onChange
}

// Settings returns the current preferences.
func (s *SettingsService) Settings(ctx context.Context) (model.Settings, error) {
	return s.settings.Get(ctx)
}

// SaveSettings validates and persists settings, then notifies the hook.
// Invalid settings return a *model.ValidationError and are not stored.
func (s *SettingsService) SaveSettings(ctx context.Context, settings model.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.Filters == nil {
		settings.Filters = []string{}
	}
	if err := s.settings.Set(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	slog.Info("settings saved",
		"poll_interval", settings.PollInterval,
		"filters", len(settings.Filters),
		"quiet_hours", settings.QuietHoursEnabled,
		"mic_mute", settings.MicMuteEnabled,
	)
	if s.onChange != nil {
		s.onChange(settings)
	}
	return nil
}

// Bootstrap connects the provider with the stored token, if any.
func (s *SettingsService) Bootstrap(ctx context.Context) error {
	token, ok, err := s.secrets.Get(ctx)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if !ok {
		slog.Info("no github token stored, polling disabled until one is saved")
		return nil
	}
	s.provider.Replace(s.connector.Connect(token), "")
	slog.Info("github client created from stored token")
	return nil
}

// SaveToken validates, encrypts and stores token, then swaps the PR source
// so the next cycle uses it. Returns driven.ErrEncryptionUnavailable when no
// encryption key is configured.
func (s *SettingsService) SaveToken(ctx context.Context, token string) error {
	if err := model.ValidateToken(token); err != nil {
		return err
	}
	if err := s.secrets.Save(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.provider.Replace(s.connector.Connect(token), "")
	slog.Info("github token saved")
	return nil
}

// HasToken reports whether a token is stored.
func (s *SettingsService) HasToken(ctx context.Context) (bool, error) {
	return s.secrets.Has(ctx)
}

// TestConnection checks token against GitHub, or the stored token when token
// is empty. Failures are reported in the result, not as errors.
func (s *SettingsService) TestConnection(ctx context.Context, token string) ConnectionResult {
	stored := false
	if token == "" {
		t, ok, err := s.secrets.Get(ctx)
		if err != nil && !errors.Is(err, driven.ErrEncryptionUnavailable) {
			slog.Warn("stored token unreadable", "error", err)
		}
		if ok {
			token = t
			stored = true
		}
	}
	if model.ValidateToken(token) != nil {
		return ConnectionResult{Message: "No token set. Please enter a token first."}
	}

	username, err := s.connector.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, driven.ErrAuth) {
			return ConnectionResult{Message: "Invalid token. Check that it has not expired or been revoked."}
		}
		return ConnectionResult{Message: fmt.Sprintf("Connection failed: %v", err)}
	}

	if stored {
		s.provider.SetUsername(username)
	}
	return ConnectionResult{
		Success:  true,
		Username: username,
		Message:  fmt.Sprintf("Connected as %s", username),
	}
}

// Snooze suppresses notifications for d from now.
func (s *SettingsService) Snooze(ctx context.Context, d time.Duration, now time.Time) (time.Time, error) {
	if d <= 0 {
		return time.Time{}, &model.ValidationError{Field: "duration", Reason: "must be positive"}
	}
	until := now.Add(d)
	if err := s.snooze.SetSnoozeUntil(ctx, until); err != nil {
		return time.Time{}, fmt.Errorf("set snooze: %w", err)
	}
	slog.Info("notifications snoozed", "until", until.Format(time.RFC3339))
	return until, nil
}

// ClearSnooze ends any active snooze.
func (s *SettingsService) ClearSnooze(ctx context.Context) error {
	if err := s.snooze.SetSnoozeUntil(ctx, time.Time{}); err != nil {
		return fmt.Errorf("clear snooze: %w", err)
	}
	slog.Info("snooze cleared")
	return nil
}

// SnoozeUntil returns the snooze deadline; zero when none is set.
func (s *SettingsService) SnoozeUntil(ctx context.Context) (time.Time, error) {
	return s.snooze.SnoozeUntil(ctx)
}
