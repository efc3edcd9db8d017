package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/prnotify/internal/adapter/driving/http"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon's state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := fetchStatus(cmd.Context(), loopbackAddr(cfg.ListenAddr))
		if err != nil {
			return fmt.Errorf("daemon not reachable at %s (is 'prnotify run' running?): %w", cfg.ListenAddr, err)
		}
		printStatus(st)
		return nil
	},
}

func fetchStatus(ctx context.Context, addr string) (httphandler.StatusResponse, error) {
	var st httphandler.StatusResponse

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/v1/status", addr), nil)
	if err != nil {
		return st, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}

func printStatus(st httphandler.StatusResponse) {
	fmt.Printf("State:    %s\n", trayLabel(st.Tray))
	fmt.Printf("Tooltip:  %s\n", st.Tooltip)

	switch {
	case st.Paused:
		fmt.Printf("Polling:  %s\n", color.New(color.FgYellow).Sprint("paused"))
	default:
		fmt.Printf("Polling:  %s (%s)\n", color.New(color.FgGreen).Sprint("active"), st.Phase)
	}

	if st.PresenceActive {
		fmt.Printf("Mic:      %s\n", color.New(color.FgYellow).Sprint("in use"))
	}
	if st.SnoozeUntil != "" {
		fmt.Printf("Snoozed:  until %s\n", st.SnoozeUntil)
	}
	fmt.Printf("Seen:     %d pull requests\n", st.SeenCount)

	if st.LastError != "" {
		fmt.Printf("Error:    %s\n", color.New(color.FgRed).Sprint(st.LastError))
	}
	if c := st.LastCycle; c != nil {
		fmt.Printf("Last run: %s (fetched %d, matched %d, new %d, notified %d)\n",
			c.StartedAt, c.Fetched, c.Matched, c.NewlySeen, len(c.Notified))
	}
}

func trayLabel(tray string) string {
	switch tray {
	case "normal":
		return color.New(color.FgGreen).Sprint("OK")
	case "quiet":
		return color.New(color.FgBlue).Sprint("QUIET")
	case "unconfigured":
		return color.New(color.FgYellow).Sprint("NOT CONFIGURED")
	case "error":
		return color.New(color.FgRed).Sprint("ERROR")
	default:
		return tray
	}
}

// loopbackAddr rewrites a bind-all listen address to loopback so the CLI
// connects to the local daemon.
func loopbackAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return raw
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
