package application_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// --- PR source ---

type mockSource struct {
	mu    sync.Mutex
	prs   []model.PullRequest
	err   error
	calls int
	block chan struct{} // When set, FetchRelevantPRs waits for it to close.
}

func (m *mockSource) FetchRelevantPRs(ctx context.Context) ([]model.PullRequest, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prs, m.err
}

func (m *mockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockConnector struct {
	login     string
	err       error
	connected []string
	verified  []string
	source    driven.PRSource
}

func (m *mockConnector) Connect(token string) driven.PRSource {
	m.connected = append(m.connected, token)
	if m.source != nil {
		return m.source
	}
	return &mockSource{}
}

func (m *mockConnector) Verify(_ context.Context, token string) (string, error) {
	m.verified = append(m.verified, token)
	return m.login, m.err
}

// --- Stores ---

type mockSeenStore struct {
	mu      sync.Mutex
	entries []model.SeenEntry
	loadErr error
	saveErr error
	saves   int
}

func (m *mockSeenStore) Load(_ context.Context) ([]model.SeenEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]model.SeenEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *mockSeenStore) Save(_ context.Context, entries []model.SeenEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = make([]model.SeenEntry, len(entries))
	copy(m.entries, entries)
	return nil
}

func (m *mockSeenStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		keys = append(keys, e.Key)
	}
	return keys
}

func (m *mockSeenStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type mockSettingsStore struct {
	mu       sync.Mutex
	settings model.Settings
	getErr   error
	setErr   error
	sets     int
}

func newMockSettingsStore(s model.Settings) *mockSettingsStore {
	return &mockSettingsStore{settings: s}
}

func (m *mockSettingsStore) Get(_ context.Context) (model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, m.getErr
}

func (m *mockSettingsStore) Set(_ context.Context, s model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.settings = s
	return nil
}

type mockSnoozeStore struct {
	mu    sync.Mutex
	until time.Time
	err   error
}

func (m *mockSnoozeStore) SnoozeUntil(_ context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.until, m.err
}

func (m *mockSnoozeStore) SetSnoozeUntil(_ context.Context, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.until = until
	return nil
}

type mockSecretStore struct {
	token   string
	has     bool
	noKey   bool
	saveErr error
}

func (m *mockSecretStore) Save(_ context.Context, token string) error {
	if m.noKey {
		return driven.ErrEncryptionUnavailable
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	m.has = true
	return nil
}

func (m *mockSecretStore) Get(_ context.Context) (string, bool, error) {
	if m.noKey {
		return "", false, driven.ErrEncryptionUnavailable
	}
	return m.token, m.has, nil
}

func (m *mockSecretStore) Has(_ context.Context) (bool, error) {
	return m.has, nil
}

// --- Presence ---

type mockProbe struct {
	mu       sync.Mutex
	active   bool
	err      error
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (m *mockProbe) Sample(ctx context.Context) (bool, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxSeen.Load()
		if n <= cur || m.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.err
}

func (m *mockProbe) set(active bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
	m.err = err
}

// --- Sinks ---

type recordingSink struct {
	mu     sync.Mutex
	sounds []string
	toasts []model.PullRequest
	spoken []string
	err    error
	panics bool
	delay  time.Duration
}

func (r *recordingSink) PlaySound(_ context.Context, path string) error {
	r.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, path)
	return r.err
}

func (r *recordingSink) ShowToast(_ context.Context, pr model.PullRequest) error {
	r.wait()
	if r.panics {
		panic("toast exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, pr)
	return r.err
}

func (r *recordingSink) Speak(_ context.Context, text string) error {
	r.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
	return r.err
}

func (r *recordingSink) wait() {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
}

func (r *recordingSink) Toasts() []model.PullRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.PullRequest(nil), r.toasts...)
}

func (r *recordingSink) Sounds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sounds...)
}

func (r *recordingSink) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoken...)
}

// --- Fixtures ---

func newPR(repo string, number int) model.PullRequest {
	return model.PullRequest{
		Number:       number,
		Title:        "Change " + repo,
		RepoFullName: repo,
		Author:       "alice",
		URL:          "https://github.com/" + repo + "/pull/1",
	}
}

// quietSettings returns defaults with every suppression feature off.
func quietSettings() model.Settings {
	s := model.DefaultSettings()
	s.MicMuteEnabled = false
	s.QuietHoursEnabled = false
	return s
}
