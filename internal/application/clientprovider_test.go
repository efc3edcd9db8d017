package application_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prnotify/internal/application"
)

func TestPRSourceProvider_GetReturnsInitialSource(t *testing.T) {
	source := &mockSource{}
	provider := application.NewPRSourceProvider(source, "octocat")

	assert.Same(t, source, provider.Get())
	assert.Equal(t, "octocat", provider.Username())
}

func TestPRSourceProvider_ReplaceSwapsSource(t *testing.T) {
	original := &mockSource{}
	replacement := &mockSource{}

	provider := application.NewPRSourceProvider(original, "old")
	provider.Replace(replacement, "new")

	assert.Same(t, replacement, provider.Get())
	assert.Equal(t, "new", provider.Username())
}

func TestPRSourceProvider_HasSourceFalseForNil(t *testing.T) {
	provider := application.NewPRSourceProvider(nil, "")

	require.False(t, provider.HasSource())
	assert.Nil(t, provider.Get())

	provider.Replace(&mockSource{}, "")
	require.True(t, provider.HasSource())
}

func TestPRSourceProvider_SetUsernameKeepsSource(t *testing.T) {
	source := &mockSource{}
	provider := application.NewPRSourceProvider(source, "")

	provider.SetUsername("octocat")

	assert.Same(t, source, provider.Get())
	assert.Equal(t, "octocat", provider.Username())
}

func TestPRSourceProvider_ConcurrentGetReplaceSafety(t *testing.T) {
	source1 := &mockSource{}
	source2 := &mockSource{}
	provider := application.NewPRSourceProvider(source1, "")

	const goroutines = 100
	var wg sync.WaitGroup
	wg.Add(goroutines * 2)

	for range goroutines {
		go func() {
			defer wg.Done()
			assert.NotNil(t, provider.Get())
		}()
		go func() {
			defer wg.Done()
			provider.Replace(source2, "octocat")
		}()
	}

	wg.Wait()
	assert.Same(t, source2, provider.Get())
}
