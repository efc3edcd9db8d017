package application

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// Presence sampling defaults.
const (
	DefaultPresenceInterval = 5 * time.Second
	DefaultPresenceTimeout  = 4 * time.Second
)

// PresenceMonitor periodically samples a PresenceProbe and tracks whether the
// microphone is in use. Samples never overlap: a sample scheduled while one is
// in flight is skipped. Errors and timeouts count as "not active".
type PresenceMonitor struct {
	probe    driven.PresenceProbe
	interval time.Duration
	timeout  time.Duration

	active   atomic.Bool
	checking atomic.Bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	onChange func(active bool)
}

// NewPresenceMonitor creates a monitor. Non-positive interval or timeout select
// the defaults.
func NewPresenceMonitor(probe driven.PresenceProbe, interval, timeout time.Duration) *PresenceMonitor {
	if interval <= 0 {
		interval = DefaultPresenceInterval
	}
	if timeout <= 0 {
		timeout = DefaultPresenceTimeout
	}
	return &PresenceMonitor{probe: probe, interval: interval, timeout: timeout}
}

// Start begins sampling, restarting any previous run. onChange is called
// after each sample whose result differs from the previous state.
func (m *PresenceMonitor) Start(ctx context.Context, onChange func(active bool)) {
	m.Stop()

	runCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	m.onChange = onChange
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loop(runCtx)
	}()
}

// Running reports whether sampling is active.
func (m *PresenceMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Stop halts sampling, waits for any in-flight sample, and resets the state
// to not active.
func (m *PresenceMonitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.active.Store(false)
	m.checking.Store(false)
}

// Current returns the last sampled state.
func (m *PresenceMonitor) Current() bool {
	return m.active.Load()
}

// CheckNow takes a sample immediately unless one is already in flight.
func (m *PresenceMonitor) CheckNow(ctx context.Context) {
	m.sample(ctx)
}

func (m *PresenceMonitor) loop(ctx context.Context) {
	m.sample(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *PresenceMonitor) sample(ctx context.Context) {
	if !m.checking.CompareAndSwap(false, true) {
		return
	}
	defer m.checking.Store(false)

	sampleCtx, cancel := context.WithTimeout(ctx, m.timeout)
	active, err := m.probe.Sample(sampleCtx)
	cancel()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		slog.Warn("mic detection error", "error", err)
		active = false
	}

	was := m.active.Swap(active)
	if was == active {
		return
	}

	if active {
		slog.Info("mic active")
	} else {
		slog.Info("mic inactive")
	}

	m.mu.Lock()
	onChange := m.onChange
	m.mu.Unlock()
	if onChange != nil {
		onChange(active)
	}
}
