package driven

import (
	"context"
	"errors"
)

// ErrSensor is wrapped by PresenceProbe implementations when a sample fails.
var ErrSensor = errors.New("presence sensor failed")

// PresenceProbe samples whether the microphone is currently in use.
// Implementations must honour ctx cancellation.
type PresenceProbe interface {
	Sample(ctx context.Context) (bool, error)
}
