package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
)

// ErrStorage is wrapped by store adapters when the backing store cannot be
// read or written, or holds data that cannot be decoded.
var ErrStorage = errors.New("storage unavailable")

// SeenStore defines the driven port for the durable dedup ledger.
type SeenStore interface {
	// Load returns every persisted entry. Errors wrap ErrStorage.
	Load(ctx context.Context) ([]model.SeenEntry, error)

	// Save replaces the persisted set with entries. The replacement is
	// all-or-nothing: on error the previous set is left intact.
	Save(ctx context.Context, entries []model.SeenEntry) error
}
