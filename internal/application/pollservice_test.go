package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prnotify/internal/application"
	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

type pollFixture struct {
	svc      *application.PollService
	source   *mockSource
	provider *application.PRSourceProvider
	seen     *mockSeenStore
	ledger   *application.Ledger
	settings *mockSettingsStore
	snooze   *mockSnoozeStore
	toasts   *recordingSink
	presence *application.PresenceMonitor
	probe    *mockProbe
}

func newPollFixture(t *testing.T, prs ...model.PullRequest) *pollFixture {
	t.Helper()

	f := &pollFixture{
		source:   &mockSource{prs: prs},
		seen:     &mockSeenStore{},
		settings: newMockSettingsStore(quietSettings()),
		snooze:   &mockSnoozeStore{},
		toasts:   &recordingSink{},
		probe:    &mockProbe{},
	}
	f.provider = application.NewPRSourceProvider(f.source, "")
	f.ledger = application.NewLedger(f.seen, 0)
	f.presence = application.NewPresenceMonitor(f.probe, time.Hour, time.Second)
	f.svc = application.NewPollService(
		f.provider,
		f.settings,
		f.snooze,
		f.ledger,
		f.presence,
		application.NewDispatcher(nil, f.toasts, nil),
		time.Second,
	)
	f.svc.SetClock(func() time.Time { return at(12, 0) })
	return f
}

func TestPollService_CycleNotifiesNewPRs(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1), newPR("acme/web", 2))

	res, err := f.svc.CheckNow(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 2, res.NewlySeen)
	assert.Len(t, res.Notified, 2)
	assert.Len(t, f.toasts.Toasts(), 2)
	assert.ElementsMatch(t, []string{"acme/api#1", "acme/web#2"}, f.seen.Keys())

	st := f.svc.Status()
	assert.Equal(t, model.TrayStateNormal, st.Tray)
	assert.Equal(t, "PR Notify - 2 pull requests awaiting review", st.Tooltip)
	assert.Equal(t, application.PhaseIdle, st.Phase)
	assert.True(t, st.Configured)
	assert.Equal(t, 2, st.SeenCount)
	require.NotNil(t, st.LastCycle)
	assert.Equal(t, res.ID, st.LastCycle.ID)
}

func TestPollService_SecondCycleDoesNotRenotify(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1))

	_, err := f.svc.CheckNow(context.Background())
	require.NoError(t, err)

	res, err := f.svc.CheckNow(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.NewlySeen)
	assert.Empty(t, res.Notified)
	assert.Len(t, f.toasts.Toasts(), 1)
	assert.Equal(t, "PR Notify - 1 pull request awaiting review", f.svc.Status().Tooltip)
}

func TestPollService_CheckNowBeforeLoadKeepsPersistedLedger(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1), newPR("acme/web", 2))
	f.seen.entries = []model.SeenEntry{
		{Key: "acme/api#1", SeenAt: at(9, 0)},
		{Key: "other/x#9", SeenAt: at(9, 0)},
	}

	res, err := f.svc.CheckNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.NewlySeen)
	require.Len(t, f.toasts.Toasts(), 1)
	assert.Equal(t, "acme/web#2", f.toasts.Toasts()[0].Key())
	assert.ElementsMatch(t, []string{"acme/api#1", "other/x#9", "acme/web#2"}, f.seen.Keys())
}

func TestPollService_Unconfigured(t *testing.T) {
	f := newPollFixture(t)
	f.provider.Replace(nil, "")

	_, err := f.svc.CheckNow(context.Background())
	assert.ErrorIs(t, err, application.ErrUnconfigured)

	_, err = f.svc.RunCycle(context.Background())
	assert.ErrorIs(t, err, application.ErrUnconfigured)

	st := f.svc.Status()
	assert.Equal(t, model.TrayStateUnconfigured, st.Tray)
	assert.Equal(t, "PR Notify - Not configured", st.Tooltip)
	assert.False(t, st.Configured)
}

func TestPollService_PausedRejectsCheckNow(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1))

	f.svc.Pause()
	_, err := f.svc.CheckNow(context.Background())

	assert.ErrorIs(t, err, application.ErrPaused)
	assert.Zero(t, f.source.Calls())
	st := f.svc.Status()
	assert.True(t, st.Paused)
	assert.Equal(t, "PR Notify - Paused", st.Tooltip)

	f.svc.Resume()
	_, err = f.svc.CheckNow(context.Background())
	assert.NoError(t, err)
}

func TestPollService_TogglePause(t *testing.T) {
	f := newPollFixture(t)

	assert.True(t, f.svc.TogglePause())
	assert.True(t, f.svc.Paused())
	assert.False(t, f.svc.TogglePause())
	assert.False(t, f.svc.Paused())
}

func TestPollService_AuthFailureKeepsLedger(t *testing.T) {
	f := newPollFixture(t)
	f.seen.entries = []model.SeenEntry{{Key: "acme/api#1", SeenAt: at(9, 0)}}
	require.NoError(t, f.ledger.Load(context.Background()))
	f.source.err = fmt.Errorf("%w: bad credentials", driven.ErrAuth)

	_, err := f.svc.CheckNow(context.Background())

	require.ErrorIs(t, err, driven.ErrAuth)
	assert.Zero(t, f.seen.Saves())
	assert.Equal(t, []string{"acme/api#1"}, f.seen.Keys())
	assert.Empty(t, f.toasts.Toasts())

	st := f.svc.Status()
	assert.Equal(t, model.TrayStateError, st.Tray)
	assert.Equal(t, "PR Notify - Authentication failed, check your token", st.Tooltip)
	assert.Contains(t, st.LastError, "bad credentials")
}

func TestPollService_NetworkFailureThenRecovery(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1))
	f.source.err = fmt.Errorf("%w: connection refused", driven.ErrNetwork)

	_, err := f.svc.CheckNow(context.Background())
	require.ErrorIs(t, err, driven.ErrNetwork)
	assert.Equal(t, "PR Notify - Cannot reach GitHub", f.svc.Status().Tooltip)

	f.source.mu.Lock()
	f.source.err = nil
	f.source.mu.Unlock()

	_, err = f.svc.CheckNow(context.Background())
	require.NoError(t, err)
	st := f.svc.Status()
	assert.Equal(t, model.TrayStateNormal, st.Tray)
	assert.Empty(t, st.LastError)
}

func TestPollService_SettingsFailureAbortsCycle(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1))
	f.settings.getErr = fmt.Errorf("%w: database is locked", driven.ErrStorage)

	_, err := f.svc.CheckNow(context.Background())

	require.ErrorIs(t, err, driven.ErrStorage)
	assert.Zero(t, f.source.Calls())
	assert.Equal(t, "PR Notify - Settings unavailable", f.svc.Status().Tooltip)
}

func TestPollService_SnoozedCycleMarksSeenQuietly(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1))
	f.snooze.until = at(13, 0)

	res, err := f.svc.CheckNow(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Suppressed)
	assert.Equal(t, model.SuppressSnoozed, res.Reason)
	assert.Empty(t, f.toasts.Toasts())
	assert.Equal(t, []string{"acme/api#1"}, f.seen.Keys())

	st := f.svc.Status()
	assert.Equal(t, model.TrayStateQuiet, st.Tray)
	assert.Equal(t, "PR Notify - Quiet (snoozed)", st.Tooltip)
}

func TestPollService_SnoozeReadFailureIgnored(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1))
	f.snooze.err = errors.New("corrupt row")

	res, err := f.svc.CheckNow(context.Background())

	require.NoError(t, err)
	assert.False(t, res.Suppressed)
	assert.Len(t, f.toasts.Toasts(), 1)
}

func TestPollService_MicActiveSuppresses(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1), newPR("acme/api", 2))
	s := quietSettings()
	s.MicMuteEnabled = true
	f.settings.settings = s
	f.probe.set(true, nil)
	f.presence.CheckNow(context.Background())

	res, err := f.svc.CheckNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.SuppressMicActive, res.Reason)
	assert.Empty(t, f.toasts.Toasts())
	assert.Len(t, f.seen.Keys(), 2)
	assert.True(t, f.svc.Status().PresenceActive)

	// Mic released: the same PRs stay seen and are not surfaced later.
	f.probe.set(false, nil)
	f.presence.CheckNow(context.Background())

	res, err = f.svc.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Notified)
	assert.Equal(t, model.TrayStateNormal, f.svc.Status().Tray)
}

func TestPollService_SingleFlight(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1))
	f.source.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.CheckNow(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return f.source.Calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, application.PhasePolling, f.svc.Status().Phase)

	_, err := f.svc.CheckNow(context.Background())
	assert.ErrorIs(t, err, application.ErrCycleInFlight)

	close(f.source.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.source.Calls())
	assert.Len(t, f.toasts.Toasts(), 1)
}

func TestPollService_FetchTimeout(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1))
	f.source.block = make(chan struct{})
	defer close(f.source.block)

	_, err := f.svc.CheckNow(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, model.TrayStateError, f.svc.Status().Tray)
}

func TestPollService_StartRunsImmediateCycle(t *testing.T) {
	f := newPollFixture(t, newPR("acme/api", 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(f.toasts.Toasts()) == 1 }, time.Second, 5*time.Millisecond)

	s := quietSettings()
	s.PollInterval = 120
	f.svc.ApplySettings(s)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poll service did not stop")
	}
}

func TestPollService_ApplySettingsNeverBlocks(t *testing.T) {
	f := newPollFixture(t)

	assert.NotPanics(t, func() {
		for range 5 {
			f.svc.ApplySettings(quietSettings())
		}
	})
	assert.False(t, f.presence.Running(), "no run context before Start")
}
