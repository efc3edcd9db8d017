// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// DefaultFetchTimeout bounds a single PR source call.
const DefaultFetchTimeout = 30 * time.Second

// Poll service trigger errors.
var (
	ErrCycleInFlight = errors.New("poll cycle already in flight")
	ErrPaused        = errors.New("polling is paused")
	ErrUnconfigured  = errors.New("no github token configured")
)

// CyclePhase is the poll loop's position in Idle -> Polling -> Deciding ->
// Notifying -> Idle.
type CyclePhase string

const (
	PhaseIdle      CyclePhase = "idle"
	PhasePolling   CyclePhase = "polling"
	PhaseDeciding  CyclePhase = "deciding"
	PhaseNotifying CyclePhase = "notifying"
)

// CycleResult summarises one completed poll cycle.
type CycleResult struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Fetched    int
	Matched    int
	NewlySeen  int
	Suppressed bool
	Reason     model.SuppressReason
	Notified   []model.PullRequest
}

// Status is a snapshot of the poll service for the presentation shell.
type Status struct {
	Tray           model.TrayState
	Tooltip        string
	Phase          CyclePhase
	Paused         bool
	Configured     bool
	PresenceActive bool
	SeenCount      int
	LastError      string
	LastCycle      *CycleResult
}

// PollService owns the process-wide polling state: the timer, the paused
// flag, the tray status and the single in-flight cycle. A trigger that
// arrives while a cycle is running is dropped, not queued.
type PollService struct {
	provider     *PRSourceProvider
	settings     driven.SettingsStore
	snooze       driven.SnoozeStore
	ledger       *Ledger
	presence     *PresenceMonitor // nil when no probe is available.
	dispatcher   *Dispatcher
	fetchTimeout time.Duration
	now          func() time.Time

	inFlight atomic.Bool
	cycles   sync.WaitGroup
	resetCh  chan time.Duration

	mu        sync.RWMutex
	runCtx    context.Context
	phase     CyclePhase
	paused    bool
	tray      model.TrayState
	tooltip   string
	lastErr   string
	lastCycle *CycleResult
}

// NewPollService creates a PollService with all required dependencies.
// presence may be nil. fetchTimeout <= 0 selects DefaultFetchTimeout.
func NewPollService(
	provider *PRSourceProvider,
	settings driven.SettingsStore,
	snooze driven.SnoozeStore,
	ledger *Ledger,
	presence *PresenceMonitor,
	dispatcher *Dispatcher,
	fetchTimeout time.Duration,
) *PollService {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &PollService{
		provider:     provider,
		settings:     settings,
		snooze:       snooze,
		ledger:       ledger,
		presence:     presence,
		dispatcher:   dispatcher,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
		resetCh:      make(chan time.Duration, 1),
		phase:        PhaseIdle,
		tray:         model.TrayStateUnconfigured,
		tooltip:      tooltipUnconfigured,
	}
}

// SetClock replaces the service's time source.
func (s *PollService) SetClock(now func() time.Time) {
	s.now = now
}

// Start loads the seen ledger unless already loaded, runs an immediate cycle, then polls on the
// interval from the user's settings until ctx is canceled. In-flight cycles
// finish before Start returns.
func (s *PollService) Start(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	_ = s.ledger.EnsureLoaded(ctx)

	settings, err := s.settings.Get(ctx)
	if err != nil {
		slog.Error("settings unavailable, using defaults", "error", err)
		settings = model.DefaultSettings()
	}
	s.applyPresence(ctx, settings)

	interval := settings.PollEvery()
	s.trigger(ctx, "startup")

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.cycles.Wait()
			if s.presence != nil {
				s.presence.Stop()
			}
			slog.Info("poll service stopped")
			return
		case <-timer.C:
			s.trigger(ctx, "timer")
			timer.Reset(interval)
		case d := <-s.resetCh:
			interval = d
			timer.Reset(interval)
			slog.Info("poll interval updated", "interval", interval)
		}
	}
}

// trigger starts a background cycle unless paused or one is in flight.
func (s *PollService) trigger(ctx context.Context, source string) {
	if s.Paused() {
		slog.Debug("poll skipped, paused", "trigger", source)
		return
	}

	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		if _, err := s.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleInFlight) {
			slog.Error("poll cycle failed", "trigger", source, "error", err)
		}
	}()
}

// CheckNow runs a cycle immediately and waits for it. It returns ErrPaused
// when polling is paused, ErrUnconfigured without a token, and
// ErrCycleInFlight if a cycle is already running. The cycle is not canceled
// if ctx is.
func (s *PollService) CheckNow(ctx context.Context) (CycleResult, error) {
	if s.Paused() {
		return CycleResult{}, ErrPaused
	}
	if !s.provider.HasSource() {
		return CycleResult{}, ErrUnconfigured
	}
	s.cycles.Add(1)
	defer s.cycles.Done()
	return s.RunCycle(context.WithoutCancel(ctx))
}

// RunCycle executes one full Polling -> Deciding -> Notifying cycle. PR source
// and settings failures abort the cycle and leave the ledger untouched.
func (s *PollService) RunCycle(ctx context.Context) (CycleResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		slog.Info("poll cycle already in flight, trigger dropped")
		return CycleResult{}, ErrCycleInFlight
	}
	defer s.inFlight.Store(false)
	defer s.setPhase(PhaseIdle)

	res := CycleResult{ID: uuid.NewString(), StartedAt: s.now()}
	log := slog.With("cycle_id", res.ID)

	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.recordFailure(err)
		return res, fmt.Errorf("load settings: %w", err)
	}

	source := s.provider.Get()
	if source == nil {
		s.setTray(model.TrayStateUnconfigured, tooltipUnconfigured, "")
		return res, ErrUnconfigured
	}

	s.setPhase(PhasePolling)
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	prs, err := source.FetchRelevantPRs(fetchCtx)
	cancel()
	if err != nil {
		s.recordFailure(err)
		return res, fmt.Errorf("fetch pull requests: %w", err)
	}

	s.setPhase(PhaseDeciding)
	_ = s.ledger.EnsureLoaded(ctx)
	snoozeUntil := s.readSnooze(ctx, log)
	presenceActive := s.presence != nil && s.presence.Current()

	decision := Decide(DecisionInput{
		PRs:            prs,
		Settings:       settings,
		Seen:           s.ledger.Keys(),
		PresenceActive: presenceActive,
		SnoozeUntil:    snoozeUntil,
		Now:            res.StartedAt,
	})

	if len(decision.NewSeenKeys) > 0 {
		if _, err := s.ledger.Record(ctx, decision.NewSeenKeys, res.StartedAt); err != nil {
			log.Error("seen ledger save failed", "error", err)
		}
	}

	for _, intent := range decision.Intents {
		log.Debug("pull request observed",
			"pr", intent.PR.Key(),
			"suppressed", intent.Suppressed,
			"reason", string(intent.Reason),
		)
	}

	s.setPhase(PhaseNotifying)
	s.dispatcher.Dispatch(ctx, settings, decision.Notify)

	res.Duration = s.now().Sub(res.StartedAt)
	res.Fetched = len(prs)
	res.Matched = len(decision.Matched)
	res.NewlySeen = len(decision.NewSeenKeys)
	res.Suppressed = decision.Suppressed
	res.Reason = decision.Reason
	res.Notified = decision.Notify

	gate := SuppressionGate(settings, presenceActive, snoozeUntil, res.StartedAt)
	s.recordSuccess(res, gate)

	log.Info("poll cycle complete",
		"fetched", res.Fetched,
		"matched", res.Matched,
		"newly_seen", res.NewlySeen,
		"notified", len(res.Notified),
		"suppressed", res.Suppressed,
		"reason", string(res.Reason),
		"duration", res.Duration.Round(time.Millisecond),
	)

	return res, nil
}

// readSnooze returns the snooze deadline, treating a read failure as no snooze.
func (s *PollService) readSnooze(ctx context.Context, log *slog.Logger) time.Time {
	if s.snooze == nil {
		return time.Time{}
	}
	until, err := s.snooze.SnoozeUntil(ctx)
	if err != nil {
		log.Warn("snooze state unreadable, ignoring", "error", err)
		return time.Time{}
	}
	return until
}

// ApplySettings re-arms the poll timer with the new interval and starts or
// stops presence sampling to match MicMuteEnabled.
func (s *PollService) ApplySettings(settings model.Settings) {
	interval := settings.PollEvery()
	select {
	case s.resetCh <- interval:
	default:
		select {
		case <-s.resetCh:
		default:
		}
		s.resetCh <- interval
	}

	s.mu.RLock()
	ctx := s.runCtx
	s.mu.RUnlock()
	if ctx != nil {
		s.applyPresence(ctx, settings)
	}
}

func (s *PollService) applyPresence(ctx context.Context, settings model.Settings) {
	if s.presence == nil {
		return
	}
	switch {
	case settings.MicMuteEnabled && !s.presence.Running():
		s.presence.Start(ctx, nil)
		slog.Info("mic detection started")
	case !settings.MicMuteEnabled && s.presence.Running():
		s.presence.Stop()
		slog.Info("mic detection stopped")
	}
}

// Pause stops timer-driven and manual cycles until Resume.
func (s *PollService) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	slog.Info("polling paused")
}

// Resume re-enables polling.
func (s *PollService) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	slog.Info("polling resumed")
}

// TogglePause flips the paused flag and returns the new value.
func (s *PollService) TogglePause() bool {
	if s.Paused() {
		s.Resume()
		return false
	}
	s.Pause()
	return true
}

// Paused reports whether polling is paused.
func (s *PollService) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// Status returns a snapshot for the presentation shell.
func (s *PollService) Status() Status {
	s.mu.RLock()
	st := Status{
		Tray:      s.tray,
		Tooltip:   s.tooltip,
		Phase:     s.phase,
		Paused:    s.paused,
		LastError: s.lastErr,
	}
	if s.lastCycle != nil {
		c := *s.lastCycle
		st.LastCycle = &c
	}
	s.mu.RUnlock()

	st.Configured = s.provider.HasSource()
	st.PresenceActive = s.presence != nil && s.presence.Current()
	st.SeenCount = s.ledger.Len()
	if st.Paused {
		st.Tooltip = tooltipPaused
	}
	return st
}

const (
	tooltipUnconfigured = "PR Notify - Not configured"
	tooltipPaused       = "PR Notify - Paused"
	tooltipAuthError    = "PR Notify - Authentication failed, check your token"
	tooltipNetworkError = "PR Notify - Cannot reach GitHub"
	tooltipStoreError   = "PR Notify - Settings unavailable"
)

func (s *PollService) setPhase(p CyclePhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *PollService) setTray(state model.TrayState, tooltip, lastErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tray = state
	s.tooltip = tooltip
	s.lastErr = lastErr
}

func (s *PollService) recordFailure(err error) {
	tooltip := tooltipNetworkError
	switch {
	case errors.Is(err, driven.ErrAuth):
		tooltip = tooltipAuthError
	case errors.Is(err, driven.ErrStorage):
		tooltip = tooltipStoreError
	}
	s.setTray(model.TrayStateError, tooltip, err.Error())
}

func (s *PollService) recordSuccess(res CycleResult, gate model.SuppressReason) {
	state := model.TrayStateNormal
	tooltip := fmt.Sprintf("PR Notify - %d pull requests awaiting review", res.Matched)
	if res.Matched == 1 {
		tooltip = "PR Notify - 1 pull request awaiting review"
	}
	if gate != model.SuppressNone {
		state = model.TrayStateQuiet
		tooltip = fmt.Sprintf("PR Notify - Quiet (%s)", gate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tray = state
	s.tooltip = tooltip
	s.lastErr = ""
	s.lastCycle = &res
}
