package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/prnotify/internal/adapter/driving/http"
	"github.com/ericfisherdev/prnotify/internal/application"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the notification daemon",
	Long: `Run polls GitHub on the interval from your settings, notifies about newly
requested reviews, and serves the local control API used by the tray and by
'prnotify status'. It runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDaemon(cmd.Context())
	},
}

func runDaemon(parent context.Context) error {
	// 1. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"prune_schedule", cfg.PruneSchedule,
		"ledger_max_age_days", cfg.LedgerMaxAgeDays,
	)

	// 2. Open database and wire services.
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	// 3. Connect the PR source from the stored token, if any.
	if err := a.settingsSvc.Bootstrap(ctx); err != nil {
		slog.Warn("stored token unavailable, polling disabled until one is saved", "error", err)
	}

	// 4. Load the seen ledger before anything can read or save it.
	// A failure is logged by the ledger, which then starts empty.
	_ = a.ledger.Load(ctx)

	// 5. Schedule ledger pruning independent of poll cycles.
	pruneSvc, err := application.NewPruneService(a.ledger, cfg.PruneSchedule)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.pollSvc.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		pruneSvc.Start(ctx)
	}()

	// 6. Serve the control API.
	logger := slog.Default()
	handler := httphandler.NewServeMux(httphandler.NewHandler(a.pollSvc, a.settingsSvc, logger), logger)
	if isLoopbackAddr(cfg.ListenAddr) {
		handler = httphandler.LoopbackOnly(handler)
	} else {
		slog.Warn("control API listening on a non-loopback address", "addr", cfg.ListenAddr)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.GitHub.Timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("prnotify started", "version", Version, "listen_addr", cfg.ListenAddr)

	// 7. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 8. Let the in-flight cycle and the pruner finish before closing the db.
	wg.Wait()

	slog.Info("shutdown complete")
	return nil
}

func isLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
