package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change notification preferences",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current preferences as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		settings, err := a.settingsSvc.Settings(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(settings)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one preference",
	Long: `Set validates and saves one preference. Keys use the JSON names shown by
'prnotify settings show'. Filters take a comma-separated list; an empty value
clears them.

Examples:
  prnotify settings set pollInterval 120
  prnotify settings set filters acme,other/web
  prnotify settings set quietHoursEnabled true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		current, err := a.settingsSvc.Settings(ctx)
		if err != nil {
			return err
		}

		updated, err := applySetting(current, args[0], args[1])
		if err != nil {
			return err
		}

		if err := a.settingsSvc.SaveSettings(ctx, updated); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", color.New(color.FgGreen).Sprint("Saved"), args[0])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
}

// applySetting returns s with the JSON field key set from its string form.
// The value is parsed according to the field's current type.
func applySetting(s model.Settings, key, value string) (model.Settings, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return s, fmt.Errorf("encode settings: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}

	current, ok := fields[key]
	if !ok {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return s, fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(keys, ", "))
	}

	switch current.(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("%s expects true or false, got %q", key, value)
		}
		fields[key] = b
	case float64:
		n, err := strconv.Atoi(value)
		if err != nil {
			return s, fmt.Errorf("%s expects an integer, got %q", key, value)
		}
		fields[key] = n
	case []any, nil:
		list := []string{}
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		fields[key] = list
	default:
		fields[key] = value
	}

	raw, err = json.Marshal(fields)
	if err != nil {
		return s, fmt.Errorf("encode settings: %w", err)
	}
	var out model.Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}
