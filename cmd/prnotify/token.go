package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored GitHub token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Encrypt and store a GitHub personal access token",
	Long: `Set stores a GitHub token encrypted with the configured secret_key.
Without an argument the token is read from standard input, which keeps it out
of shell history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		token, err := tokenArg(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.settingsSvc.SaveToken(ctx, token); err != nil {
			return err
		}
		fmt.Println(color.New(color.FgGreen).Sprint("Token saved."))
		return nil
	},
}

var tokenTestCmd = &cobra.Command{
	Use:   "test [token]",
	Short: "Verify a token, or the stored one, against GitHub",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		var token string
		if len(args) == 1 {
			token = args[0]
		}

		res := a.settingsSvc.TestConnection(ctx, token)
		if !res.Success {
			fmt.Println(color.New(color.FgRed).Sprint("FAIL"), res.Message)
			return errors.New("token test failed")
		}
		fmt.Println(color.New(color.FgGreen).Sprint("OK"), res.Message)
		return nil
	},
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a token is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		ok, err := a.settingsSvc.HasToken(ctx)
		if err != nil {
			return err
		}

		switch {
		case ok:
			fmt.Println("Token:", color.New(color.FgGreen).Sprint("stored"))
		default:
			fmt.Println("Token:", color.New(color.FgYellow).Sprint("not set"))
		}
		if !a.secrets.EncryptionAvailable() {
			fmt.Println("Encryption:", color.New(color.FgRed).Sprint("unavailable (set PRNOTIFY_SECRET_KEY)"))
		}
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenTestCmd, tokenStatusCmd)
}

// tokenArg returns the token from args or, failing that, the first line of r.
func tokenArg(args []string, r io.Reader) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}

	if f, ok := r.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			fmt.Fprint(os.Stderr, "GitHub token: ")
		}
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
