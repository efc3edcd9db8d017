package driven

import (
	"context"
	"time"
)

// SnoozeStore defines the driven port for the user's snooze deadline.
// A zero time means no snooze is active.
type SnoozeStore interface {
	SnoozeUntil(ctx context.Context) (time.Time, error)
	SetSnoozeUntil(ctx context.Context, until time.Time) error
}
