package model

import (
	"strconv"
	"strings"
)

// PullRequest is a snapshot of a GitHub pull request awaiting the user's
// attention, as returned by one poll of the PR source. It is never persisted.
type PullRequest struct {
	Number       int
	Title        string
	RepoFullName string // "owner/repo"
	Author       string
	URL          string
}

// Key returns the PR identity used by the seen ledger: "owner/repo#number".
func (pr PullRequest) Key() string {
	return pr.RepoFullName + "#" + strconv.Itoa(pr.Number)
}

// Owner returns the owner portion of RepoFullName, or the whole name when it
// contains no slash.
func (pr PullRequest) Owner() string {
	owner, _, _ := strings.Cut(pr.RepoFullName, "/")
	return owner
}
