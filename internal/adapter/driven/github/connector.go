package github

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubConnector = (*Connector)(nil)

// Connector builds Clients for a token. With an empty base URL it targets
// api.github.com through the caching, rate-limited transport.
type Connector struct {
	baseURL    string
	httpClient *http.Client
}

// NewConnector creates a Connector. baseURL may be empty for github.com.
func NewConnector(baseURL string) *Connector {
	return &Connector{baseURL: baseURL, httpClient: http.DefaultClient}
}

// NewConnectorWithHTTPClient creates a Connector that sends every request
// through httpClient to baseURL.
func NewConnectorWithHTTPClient(httpClient *http.Client, baseURL string) *Connector {
	return &Connector{baseURL: baseURL, httpClient: httpClient}
}

// Connect returns a PRSource authenticated with token.
func (c *Connector) Connect(token string) driven.PRSource {
	return c.client(token)
}

// Verify checks token by fetching the authenticated user.
func (c *Connector) Verify(ctx context.Context, token string) (string, error) {
	return c.client(token).Login(ctx)
}

func (c *Connector) client(token string) *Client {
	if c.baseURL == "" {
		return NewClient(token)
	}
	client, err := NewClientWithHTTPClient(c.httpClient, c.baseURL, token)
	if err != nil {
		slog.Error("invalid github base url, using api.github.com", "base_url", c.baseURL, "error", err)
		return NewClient(token)
	}
	return client
}
