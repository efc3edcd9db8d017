package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// Dispatcher fans each notified PR out to the enabled sinks. A nil sink is
// treated as unavailable. Sink failures are logged and never returned.
type Dispatcher struct {
	sound   driven.SoundPlayer
	toast   driven.Toaster
	speaker driven.Speaker
}

// NewDispatcher creates a Dispatcher. Any sink may be nil.
func NewDispatcher(sound driven.SoundPlayer, toast driven.Toaster, speaker driven.Speaker) *Dispatcher {
	return &Dispatcher{sound: sound, toast: toast, speaker: speaker}
}

// Dispatch fires the sinks enabled in settings for each PR. Sinks for one PR
// run concurrently and independently; Dispatch returns once all have finished.
func (d *Dispatcher) Dispatch(ctx context.Context, settings model.Settings, prs []model.PullRequest) {
	for _, pr := range prs {
		var wg sync.WaitGroup

		if settings.SoundEnabled && d.sound != nil {
			path := settings.SoundFile()
			d.fire(&wg, "sound", pr, func() error { return d.sound.PlaySound(ctx, path) })
		}
		if settings.ToastEnabled && d.toast != nil {
			d.fire(&wg, "toast", pr, func() error { return d.toast.ShowToast(ctx, pr) })
		}
		if settings.SpeechEnabled && d.speaker != nil {
			text := SpeechText(pr)
			d.fire(&wg, "speech", pr, func() error { return d.speaker.Speak(ctx, text) })
		}

		wg.Wait()
	}
}

func (d *Dispatcher) fire(wg *sync.WaitGroup, sink string, pr model.PullRequest, effect func() error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if v := recover(); v != nil {
				slog.Error("notification sink panicked", "sink", sink, "pr", pr.Key(), "panic", v)
			}
		}()
		if err := effect(); err != nil {
			slog.Warn("notification sink failed", "sink", sink, "pr", pr.Key(), "error", err)
		}
	}()
}

// SpeechText is the sentence read aloud for a newly observed PR.
func SpeechText(pr model.PullRequest) string {
	if pr.Author == "" {
		return fmt.Sprintf("New pull request on %s: %s", pr.RepoFullName, pr.Title)
	}
	return fmt.Sprintf("%s requested your review on %s: %s", pr.Author, pr.RepoFullName, pr.Title)
}
