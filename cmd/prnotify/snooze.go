package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var snoozeCmd = &cobra.Command{
	Use:   "snooze <duration|clear>",
	Short: "Silence notifications for a while",
	Long: `Snooze suppresses notifications until the duration elapses. Pull requests
that arrive meanwhile are still recorded as seen. Use 'clear' to end a snooze
early.

Examples:
  prnotify snooze 45m
  prnotify snooze 2h
  prnotify snooze clear`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if args[0] == "clear" {
			if err := a.settingsSvc.ClearSnooze(ctx); err != nil {
				return err
			}
			fmt.Println("Snooze cleared.")
			return nil
		}

		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid duration %q: expected e.g. 30m or 2h", args[0])
		}

		until, err := a.settingsSvc.Snooze(ctx, d, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("%s until %s\n",
			color.New(color.FgYellow).Sprint("Snoozed"),
			until.Local().Format("15:04 Mon Jan 2"))
		return nil
	},
}
