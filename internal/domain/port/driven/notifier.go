package driven

import (
	"context"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
)

// SoundPlayer plays a notification sound. An empty path selects the platform
// default sound.
type SoundPlayer interface {
	PlaySound(ctx context.Context, path string) error
}

// Toaster shows a desktop toast for a pull request.
type Toaster interface {
	ShowToast(ctx context.Context, pr model.PullRequest) error
}

// Speaker reads text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}
