package driven

import (
	"context"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
)

// SettingsStore defines the driven port for the user's preference record.
// Get returns defaults when nothing has been saved and upgrades legacy records
// to the current shape on first read. Set does not validate; callers must.
type SettingsStore interface {
	Get(ctx context.Context) (model.Settings, error)
	Set(ctx context.Context, settings model.Settings) error
}
