package application

import (
	"sync"

	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// PRSourceProvider enables runtime hot-swap of the PR source. It holds a
// mutex-protected reference to the current driven.PRSource and the login it
// authenticates as, so a token saved through the control API takes effect on
// the next cycle without restarting the daemon.
type PRSourceProvider struct {
	mu       sync.RWMutex
	source   driven.PRSource
	username string
}

// NewPRSourceProvider creates a provider with the given initial source.
// source may be nil if no token is stored at startup.
func NewPRSourceProvider(source driven.PRSource, username string) *PRSourceProvider {
	return &PRSourceProvider{
		source:   source,
		username: username,
	}
}

// Get returns the current source, or nil when unconfigured.
func (p *PRSourceProvider) Get() driven.PRSource {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

// Username returns the login associated with the current source, if known.
func (p *PRSourceProvider) Username() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.username
}

// Replace swaps the current source and username.
func (p *PRSourceProvider) Replace(source driven.PRSource, username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = source
	p.username = username
}

// SetUsername records the login once a connection test has resolved it.
func (p *PRSourceProvider) SetUsername(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.username = username
}

// HasSource returns true if a non-nil source is currently held.
func (p *PRSourceProvider) HasSource() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source != nil
}
