package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/prnotify/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "prnotify",
	Short: "Desktop notifications for pull requests awaiting your review",
	Long: `prnotify polls GitHub for open pull requests that request your review
and announces new ones with a sound, a desktop toast and speech. It stays
quiet during quiet hours, while your microphone is in use, and while snoozed.

Get started:
  prnotify token set      Store a GitHub personal access token
  prnotify token test     Verify the stored token
  prnotify run            Start the background daemon
  prnotify status         Show the running daemon's state`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
			slog.Debug("verbose logging enabled")
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (YAML, JSON or TOML); PRNOTIFY_* env vars override it")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		runCmd,
		checkCmd,
		tokenCmd,
		settingsCmd,
		snoozeCmd,
		statusCmd,
	)
}
