// Package desktop implements the notification sink ports. Toasts and the
// default alert sound go through the native notification service; a custom
// sound file, speech, and any user-configured override run platform commands.
//
// Each command is an argv list. The placeholders {path}, {title}, {body},
// {url} and {text} are substituted per argument, and the same values are
// exported to the child as PRNOTIFY_SOUND, PRNOTIFY_TITLE, PRNOTIFY_BODY,
// PRNOTIFY_URL and PRNOTIFY_TEXT for scripts that cannot take arguments.
package desktop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// DefaultSinkTimeout bounds a single sink command.
const DefaultSinkTimeout = 30 * time.Second

// ErrNotConfigured is returned by a sink with neither a command nor a native
// fallback.
var ErrNotConfigured = errors.New("sink command not configured")

// Compile-time interface satisfaction checks.
var (
	_ driven.SoundPlayer = (*Notifier)(nil)
	_ driven.Toaster     = (*Notifier)(nil)
	_ driven.Speaker     = (*Notifier)(nil)
)

// Commands holds the argv templates for each sink. Sound plays a custom
// sound file; a toast command replaces the native notification.
type Commands struct {
	Sound  []string
	Toast  []string
	Speech []string
}

// Notifier runs the configured sink commands and falls back to the native
// alerter for toasts and the default sound.
type Notifier struct {
	cmds    Commands
	native  Alerter // nil disables the native fallback.
	timeout time.Duration
}

// NewNotifier creates a Notifier. native may be nil. A non-positive timeout
// selects DefaultSinkTimeout.
func NewNotifier(cmds Commands, native Alerter, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	return &Notifier{cmds: cmds, native: native, timeout: timeout}
}

// HasSound reports whether any sound can be played.
func (n *Notifier) HasSound() bool { return len(n.cmds.Sound) > 0 || n.native != nil }

// HasToast reports whether toasts can be shown.
func (n *Notifier) HasToast() bool { return len(n.cmds.Toast) > 0 || n.native != nil }

// HasSpeech reports whether a speech command is configured.
func (n *Notifier) HasSpeech() bool { return len(n.cmds.Speech) > 0 }

// PlaySound plays path with the sound command. An empty path, or a missing
// sound command, plays the system alert tone instead.
func (n *Notifier) PlaySound(ctx context.Context, path string) error {
	useCommand := path != "" && len(n.cmds.Sound) > 0
	if useCommand || n.native == nil {
		return n.run(ctx, "sound", n.cmds.Sound, map[string]string{"path": path})
	}
	if path != "" {
		slog.Debug("no sound command, playing alert tone", "path", path)
	}
	return n.alert(ctx, "sound", n.native.Beep)
}

// ShowToast shows a toast naming the repository and PR number, with the
// author and plain-text title as the body.
func (n *Notifier) ShowToast(ctx context.Context, pr model.PullRequest) error {
	title, body := ToastTitle(pr), ToastBody(pr)
	if len(n.cmds.Toast) == 0 && n.native != nil {
		return n.alert(ctx, "toast", func() error { return n.native.Notify(title, body) })
	}
	return n.run(ctx, "toast", n.cmds.Toast, map[string]string{
		"title": title,
		"body":  body,
		"url":   pr.URL,
	})
}

// Speak reads text aloud after stripping markdown from it.
func (n *Notifier) Speak(ctx context.Context, text string) error {
	return n.run(ctx, "speech", n.cmds.Speech, map[string]string{"text": PlainText(text)})
}

// ToastTitle is the toast heading for pr.
func ToastTitle(pr model.PullRequest) string {
	return "Review requested: " + pr.Key()
}

// ToastBody is the toast text for pr.
func ToastBody(pr model.PullRequest) string {
	title := PlainText(pr.Title)
	if pr.Author == "" {
		return title
	}
	return pr.Author + ": " + title
}

// alert runs a native call, giving up after the sink timeout. The call itself
// cannot be interrupted and finishes in the background.
func (n *Notifier) alert(ctx context.Context, sink string, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("native %s: %w", sink, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("native %s: %w", sink, ctx.Err())
	}
}

func (n *Notifier) run(ctx context.Context, sink string, argv []string, values map[string]string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%s: %w", sink, ErrNotConfigured)
	}

	args := expand(argv, values)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	// nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), environ(values)...)
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			slog.Debug("sink stderr", "sink", sink, "output", strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("running %s command %s: %w", sink, args[0], err)
	}

	slog.Debug("sink command finished", "sink", sink, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// expand substitutes {name} placeholders in every argument.
func expand(argv []string, values map[string]string) []string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)

	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = r.Replace(a)
	}
	return out
}

var envNames = map[string]string{
	"path":  "PRNOTIFY_SOUND",
	"title": "PRNOTIFY_TITLE",
	"body":  "PRNOTIFY_BODY",
	"url":   "PRNOTIFY_URL",
	"text":  "PRNOTIFY_TEXT",
}

func environ(values map[string]string) []string {
	env := make([]string, 0, len(values))
	for k, v := range values {
		if name, ok := envNames[k]; ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}
