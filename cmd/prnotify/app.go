package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/prnotify/internal/adapter/driven/desktop"
	githubadapter "github.com/ericfisherdev/prnotify/internal/adapter/driven/github"
	"github.com/ericfisherdev/prnotify/internal/adapter/driven/presence"
	sqliteadapter "github.com/ericfisherdev/prnotify/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/prnotify/internal/application"
	"github.com/ericfisherdev/prnotify/internal/config"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// app is the wired object graph shared by the daemon and the one-shot
// commands.
type app struct {
	db          *sqliteadapter.DB
	secrets     *sqliteadapter.SecretRepo
	provider    *application.PRSourceProvider
	ledger      *application.Ledger
	presence    *application.PresenceMonitor
	settingsSvc *application.SettingsService
	pollSvc     *application.PollService
}

// openApp opens the database, runs migrations and wires every adapter and
// service. The caller must call close.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", cfg.DBPath)

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}

	key, err := cfg.SecretKey()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	settingsStore := sqliteadapter.NewSettingsRepo(db)
	snoozeStore := sqliteadapter.NewSnoozeRepo(db)
	secretStore := sqliteadapter.NewSecretRepo(db, key)
	seenStore := sqliteadapter.NewSeenRepo(db)

	if !secretStore.EncryptionAvailable() {
		slog.Warn("no secret_key configured, token storage unavailable")
	}

	connector := githubadapter.NewConnector(cfg.GitHub.BaseURL)
	provider := application.NewPRSourceProvider(nil, "")

	ledger := application.NewLedger(seenStore, cfg.LedgerMaxAge())
	monitor := newPresenceMonitor(cfg.Sensor)
	dispatcher := newDispatcher(cfg.Sink)

	settingsSvc := application.NewSettingsService(settingsStore, secretStore, snoozeStore, connector, provider, nil)
	pollSvc := application.NewPollService(provider, settingsStore, snoozeStore, ledger, monitor, dispatcher, cfg.GitHub.Timeout)
	settingsSvc.SetOnChange(pollSvc.ApplySettings)

	return &app{
		db:          db,
		secrets:     secretStore,
		provider:    provider,
		ledger:      ledger,
		presence:    monitor,
		settingsSvc: settingsSvc,
		pollSvc:     pollSvc,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// newPresenceMonitor returns nil when no probe command is available.
func newPresenceMonitor(sc config.SensorConfig) *application.PresenceMonitor {
	argv := sc.Command
	if argv == nil {
		argv = presence.DefaultCommand()
	}
	if len(argv) == 0 {
		slog.Info("mic detection unavailable on this platform")
		return nil
	}

	probe, err := presence.NewCommandProbe(argv)
	if err != nil {
		slog.Warn("mic detection disabled", "error", err)
		return nil
	}
	return application.NewPresenceMonitor(probe, sc.Interval, sc.Timeout)
}

// newDispatcher builds the sinks from the platform defaults overridden by
// configuration. A command configured as empty disables its sink; sinks with
// neither a command nor the native alerter are left out.
func newDispatcher(sc config.SinkConfig) *application.Dispatcher {
	cmds := desktop.DefaultCommands()
	if sc.SoundCommand != nil {
		cmds.Sound = sc.SoundCommand
	}
	if sc.ToastCommand != nil {
		cmds.Toast = sc.ToastCommand
	}
	if sc.SpeechCommand != nil {
		cmds.Speech = sc.SpeechCommand
	}

	notifier := desktop.NewNotifier(cmds, desktop.NativeAlerter{}, sc.Timeout)

	var (
		sound   driven.SoundPlayer
		toast   driven.Toaster
		speaker driven.Speaker
	)
	if notifier.HasSound() && !disabled(sc.SoundCommand) {
		sound = notifier
	}
	if notifier.HasToast() && !disabled(sc.ToastCommand) {
		toast = notifier
	}
	if notifier.HasSpeech() {
		speaker = notifier
	}
	slog.Debug("notification sinks",
		"sound", sound != nil,
		"toast", toast != nil,
		"speech", speaker != nil,
		"toast_command", len(cmds.Toast) > 0,
	)

	return application.NewDispatcher(sound, toast, speaker)
}

// disabled reports whether a command was configured as explicitly empty.
func disabled(argv []string) bool {
	return argv != nil && len(argv) == 0
}

// requireToken loads the stored token into the PR source provider.
func (a *app) requireToken(ctx context.Context) error {
	if err := a.settingsSvc.Bootstrap(ctx); err != nil {
		return err
	}
	if !a.provider.HasSource() {
		return fmt.Errorf("%w: run 'prnotify token set' first", application.ErrUnconfigured)
	}
	return nil
}
