package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// DefaultLedgerMaxAge is how long a seen entry is kept before pruning.
const DefaultLedgerMaxAge = 30 * 24 * time.Hour

// MergeSeen returns existing plus one entry stamped with now for every key in
// newKeys that is not already present. Keys stay unique: duplicates in either
// input collapse to the first occurrence. Merging the same keys twice yields
// the same set.
func MergeSeen(existing []model.SeenEntry, newKeys []string, now time.Time) []model.SeenEntry {
	present := make(map[string]struct{}, len(existing)+len(newKeys))
	merged := make([]model.SeenEntry, 0, len(existing)+len(newKeys))

	for _, e := range existing {
		if _, dup := present[e.Key]; dup {
			continue
		}
		present[e.Key] = struct{}{}
		merged = append(merged, e)
	}

	for _, key := range newKeys {
		if _, dup := present[key]; dup {
			continue
		}
		present[key] = struct{}{}
		merged = append(merged, model.SeenEntry{Key: key, SeenAt: now})
	}

	return merged
}

// PruneSeen drops entries seen more than maxAge before now. Entries exactly
// maxAge old are kept.
func PruneSeen(entries []model.SeenEntry, maxAge time.Duration, now time.Time) []model.SeenEntry {
	kept := make([]model.SeenEntry, 0, len(entries))
	for _, e := range entries {
		if now.Sub(e.SeenAt) > maxAge {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// MaxAgeDays converts a day count to a prune age. Non-positive values fall
// back to DefaultLedgerMaxAge.
func MaxAgeDays(days int) time.Duration {
	if days <= 0 {
		return DefaultLedgerMaxAge
	}
	return time.Duration(days) * 24 * time.Hour
}

// Ledger is the in-memory view of the dedup ledger, flushed to a SeenStore
// after every change. It is safe for concurrent use by the poll loop and the
// prune schedule. Record and Prune load the persisted set first if Load has
// not run, so a save never replaces entries the ledger has not read.
type Ledger struct {
	store  driven.SeenStore
	maxAge time.Duration

	mu      sync.Mutex
	entries []model.SeenEntry
	loaded  bool
	dirty   bool // In-memory state has changes the store has not accepted yet.
}

// NewLedger creates a Ledger backed by store. maxAge <= 0 selects
// DefaultLedgerMaxAge.
func NewLedger(store driven.SeenStore, maxAge time.Duration) *Ledger {
	if maxAge <= 0 {
		maxAge = DefaultLedgerMaxAge
	}
	return &Ledger{store: store, maxAge: maxAge}
}

// Load replaces the in-memory set with the persisted one. A store failure is
// logged and the ledger starts empty; the error is returned for reporting only.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked(ctx)
}

// EnsureLoaded loads the persisted set unless a load has already run.
func (l *Ledger) EnsureLoaded(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}
	return l.loadLocked(ctx)
}

func (l *Ledger) loadLocked(ctx context.Context) error {
	entries, err := l.store.Load(ctx)
	l.loaded = true

	if err != nil {
		slog.Error("seen ledger unreadable, starting empty", "error", err)
		l.entries = nil
		return err
	}

	l.entries = MergeSeen(entries, nil, time.Time{})
	slog.Debug("seen ledger loaded", "entries", len(l.entries))
	return nil
}

// Keys returns a snapshot of the seen identity keys.
func (l *Ledger) Keys() map[string]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.SeenKeys(l.entries)
}

// Len returns the number of entries held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of the held entries.
func (l *Ledger) Entries() []model.SeenEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.SeenEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Record marks keys as seen at now and persists the result when anything
// changed. The in-memory set keeps the new keys even if the save fails, so
// the same PRs are not notified again in this process; the save is retried
// on the next Record or Prune.
func (l *Ledger) Record(ctx context.Context, keys []string, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		_ = l.loadLocked(ctx)
	}

	before := len(l.entries)
	l.entries = MergeSeen(l.entries, keys, now)
	added := len(l.entries) - before

	if added == 0 && !l.dirty {
		return 0, nil
	}
	return added, l.flushLocked(ctx)
}

// Prune drops entries older than the ledger's max age relative to now and
// persists the result when anything was removed.
func (l *Ledger) Prune(ctx context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		_ = l.loadLocked(ctx)
	}

	before := len(l.entries)
	l.entries = PruneSeen(l.entries, l.maxAge, now)
	removed := before - len(l.entries)

	if removed == 0 && !l.dirty {
		return 0, nil
	}
	return removed, l.flushLocked(ctx)
}

func (l *Ledger) flushLocked(ctx context.Context) error {
	if err := l.store.Save(ctx, l.entries); err != nil {
		l.dirty = true
		return err
	}
	l.dirty = false
	return nil
}
