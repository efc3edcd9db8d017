package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/prnotify/internal/adapter/driving/http"
)

// checkRequestTimeout bounds a check delegated to the daemon. It covers a full
// cycle including the PR fetch and the notification sinks.
const checkRequestTimeout = 2 * time.Minute

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one poll cycle now and print what was notified",
	Long: `Check runs a single poll cycle: it fetches pull requests, applies your
filters and quiet rules, notifies about new ones and records them as seen,
exactly as the daemon would.

If the daemon is running, the cycle runs inside it so the two processes never
write the seen ledger at the same time. Otherwise it runs in this process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		addr := loopbackAddr(cfg.ListenAddr)
		if daemonRunning(ctx, addr) {
			slog.Debug("daemon running, delegating check", "addr", addr)
			res, err := requestCheck(ctx, addr)
			if err != nil {
				return err
			}
			printCycle(res)
			return nil
		}

		return checkLocal(ctx)
	},
}

func checkLocal(ctx context.Context) error {
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireToken(ctx); err != nil {
		return err
	}
	// An unreadable ledger is treated as empty; the ledger logs the failure.
	_ = a.ledger.Load(ctx)

	settings, err := a.settingsSvc.Settings(ctx)
	if err != nil {
		return err
	}
	if settings.MicMuteEnabled && a.presence != nil {
		a.presence.CheckNow(ctx)
	}

	res, err := a.pollSvc.CheckNow(ctx)
	if err != nil {
		return err
	}

	printCycle(httphandler.NewCycleResponse(res))
	return nil
}

// daemonRunning reports whether a daemon answers the health endpoint at addr.
func daemonRunning(ctx context.Context, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/v1/health", addr), nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// requestCheck asks the daemon at addr to run a cycle and returns its result.
func requestCheck(ctx context.Context, addr string) (httphandler.CycleResponse, error) {
	var res httphandler.CycleResponse

	ctx, cancel := context.WithTimeout(ctx, checkRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://%s/api/v1/check", addr), nil)
	if err != nil {
		return res, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return res, fmt.Errorf("daemon check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e httphandler.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return res, fmt.Errorf("daemon check: unexpected status %d", resp.StatusCode)
		}
		return res, fmt.Errorf("daemon check: %s", e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("decode check result: %w", err)
	}
	return res, nil
}

func printCycle(res httphandler.CycleResponse) {
	fmt.Printf("Fetched %d, matched %d, newly seen %d\n", res.Fetched, res.Matched, res.NewlySeen)

	if res.Suppressed {
		fmt.Printf("%s notifications suppressed (%s)\n",
			color.New(color.FgYellow).Sprint("QUIET"), res.Reason)
		return
	}
	if len(res.Notified) == 0 {
		fmt.Println("No new pull requests.")
		return
	}

	for _, pr := range res.Notified {
		fmt.Printf("  %s %s %s\n",
			color.New(color.FgGreen).Sprint("NEW"),
			color.New(color.FgCyan).Sprint(pr.Key),
			pr.Title,
		)
		if pr.Author != "" {
			fmt.Printf("      by %s  %s\n", pr.Author, pr.URL)
		}
	}
}
