// Package github implements the PRSource port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// DefaultQuery selects open pull requests that request the authenticated
// user's review.
const DefaultQuery = "is:pr is:open archived:false review-requested:@me"

// Compile-time interface satisfaction check.
var _ driven.PRSource = (*Client)(nil)

// Client implements the driven.PRSource port using the GitHub search API.
type Client struct {
	gh    *gh.Client
	query string
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client, query: DefaultQuery}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// It serves GitHub Enterprise installations and httptest servers in tests.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client, query: DefaultQuery}, nil
}

// FetchRelevantPRs returns every open pull request awaiting the user's review.
// It handles pagination automatically. Errors wrap driven.ErrAuth when the
// token is rejected and driven.ErrNetwork otherwise.
func (c *Client) FetchRelevantPRs(ctx context.Context) ([]model.PullRequest, error) {
	opts := &gh.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	prs := []model.PullRequest{}
	for {
		result, resp, err := c.gh.Search.Issues(ctx, c.query, opts)
		if err != nil {
			return nil, classify(fmt.Errorf("searching pull requests (page %d): %w", opts.Page, err))
		}

		logRateLimit(resp, "search/issues", opts.Page, len(result.Issues))

		for _, issue := range result.Issues {
			if !issue.IsPullRequest() {
				continue
			}
			pr, ok := mapIssue(issue)
			if !ok {
				slog.Warn("skipping search result without repository", "url", issue.GetHTMLURL())
				continue
			}
			prs = append(prs, pr)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return prs, nil
}

// Login returns the login of the authenticated user.
func (c *Client) Login(ctx context.Context) (string, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", classify(fmt.Errorf("getting authenticated user: %w", err))
	}
	return user.GetLogin(), nil
}

// classify wraps err with driven.ErrAuth for rejected credentials and
// driven.ErrNetwork for everything else.
func classify(err error) error {
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %w", driven.ErrNetwork, err)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", driven.ErrAuth, err)
		}
	}

	return fmt.Errorf("%w: %w", driven.ErrNetwork, err)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 5 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapIssue converts a search result to a domain PullRequest. It uses GetXxx()
// helpers exclusively to avoid nil pointer panics. ok is false when the
// repository cannot be derived.
func mapIssue(issue *gh.Issue) (model.PullRequest, bool) {
	repo, ok := repoFromURL(issue.GetRepositoryURL())
	if !ok {
		return model.PullRequest{}, false
	}

	return model.PullRequest{
		Number:       issue.GetNumber(),
		Title:        issue.GetTitle(),
		RepoFullName: repo,
		Author:       issue.GetUser().GetLogin(),
		URL:          issue.GetHTMLURL(),
	}, true
}

// repoFromURL extracts "owner/repo" from an API repository URL such as
// https://api.github.com/repos/owner/repo.
func repoFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[len(parts)-3] != "repos" {
		return "", false
	}
	owner, name := parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || name == "" {
		return "", false
	}
	return owner + "/" + name, true
}
