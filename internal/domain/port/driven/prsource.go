package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
)

// ErrAuth is returned by a PRSource when the credential is invalid or expired.
var ErrAuth = errors.New("github authentication failed")

// ErrNetwork is returned by a PRSource for transient transport or API failures.
var ErrNetwork = errors.New("github request failed")

// PRSource defines the driven port that returns the pull requests currently
// awaiting the authenticated user's attention. The credential is bound when
// the source is constructed. Errors wrap ErrAuth or ErrNetwork.
type PRSource interface {
	FetchRelevantPRs(ctx context.Context) ([]model.PullRequest, error)
}

// GitHubConnector builds PR sources from a personal access token and checks
// tokens against the API.
type GitHubConnector interface {
	// Connect returns a PRSource authenticated with token.
	Connect(token string) PRSource

	// Verify checks the token and returns the login it belongs to.
	// Errors wrap ErrAuth or ErrNetwork.
	Verify(ctx context.Context, token string) (string, error)
}
