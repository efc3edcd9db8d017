// Package presence implements the PresenceProbe port by running an external
// command that prints "true" while the microphone is in use.
package presence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// windowsScript inspects the capability consent store for any application
// that started using the microphone and has not stopped yet.
const windowsScript = `
$active = (Get-ChildItem "HKCU:\SOFTWARE\Microsoft\Windows\CurrentVersion\CapabilityAccessManager\ConsentStore\microphone" -Recurse -ErrorAction SilentlyContinue |
  Where-Object { $_.GetValue("LastUsedTimeStop") -eq 0 -and $_.GetValue("LastUsedTimeStart") -ne 0 }).Count -gt 0
if ($active) { "true" } else { "false" }
`

// linuxScript reports an active PulseAudio/PipeWire capture stream.
const linuxScript = `if pactl list short source-outputs 2>/dev/null | grep -q .; then echo true; else echo false; fi`

// Compile-time interface satisfaction checks.
var (
	_ driven.PresenceProbe = (*CommandProbe)(nil)
	_ driven.PresenceProbe = Disabled{}
)

// DefaultCommand returns the probe command for the current platform, or nil
// when the platform has none.
func DefaultCommand() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", windowsScript}
	case "linux":
		return []string{"sh", "-c", linuxScript}
	default:
		return nil
	}
}

// CommandProbe runs argv on every sample. The trimmed standard output "true"
// means active; anything else means inactive.
type CommandProbe struct {
	argv []string
}

// NewCommandProbe creates a probe for argv. argv[0] is looked up on PATH.
func NewCommandProbe(argv []string) (*CommandProbe, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("presence command is empty")
	}
	return &CommandProbe{argv: append([]string(nil), argv...)}, nil
}

// Sample runs the command once. Failures, including ctx expiry, wrap
// driven.ErrSensor.
func (p *CommandProbe) Sample(ctx context.Context) (bool, error) {
	// nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("%w: %s: %w", driven.ErrSensor, p.argv[0], ctxErr)
		}
		if stderr.Len() > 0 {
			slog.Debug("presence probe stderr", "output", strings.TrimSpace(stderr.String()))
		}
		return false, fmt.Errorf("%w: %s: %w", driven.ErrSensor, p.argv[0], err)
	}

	return strings.TrimSpace(string(out)) == "true", nil
}

// Disabled is a probe for platforms without microphone detection. It always
// reports inactive.
type Disabled struct{}

// Sample always returns false.
func (Disabled) Sample(context.Context) (bool, error) {
	return false, nil
}
