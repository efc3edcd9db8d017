package application

import (
	"strings"
	"time"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
)

// DecisionInput is everything the decision engine reads for one cycle.
type DecisionInput struct {
	PRs            []model.PullRequest
	Settings       model.Settings
	Seen           map[string]struct{}
	PresenceActive bool
	SnoozeUntil    time.Time
	Now            time.Time
}

// Decision is the outcome of one cycle.
type Decision struct {
	// Matched holds the PRs that passed the repository filter.
	Matched []model.PullRequest
	// Notify holds the newly observed PRs to surface. Empty when suppressed.
	Notify []model.PullRequest
	// NewSeenKeys holds the identity key of every newly observed PR, whether
	// or not it is notified.
	NewSeenKeys []string
	// Suppressed reports whether the gate silenced this cycle's newly
	// observed PRs. They are still recorded as seen.
	Suppressed bool
	// Reason names the gate that fired, or SuppressNone.
	Reason model.SuppressReason
	// Intents holds one entry per newly observed PR.
	Intents []model.NotificationIntent
}

// Decide partitions the polled PRs into already-seen and newly observed,
// evaluates the suppression gate once for the whole cycle, and returns the
// PRs to notify together with the keys to add to the ledger.
func Decide(in DecisionInput) Decision {
	var d Decision

	d.Matched = FilterPRs(in.PRs, in.Settings.Filters)

	var newly []model.PullRequest
	batch := make(map[string]struct{}, len(d.Matched))
	for _, pr := range d.Matched {
		key := pr.Key()
		if _, seen := in.Seen[key]; seen {
			continue
		}
		if _, dup := batch[key]; dup {
			continue
		}
		batch[key] = struct{}{}
		newly = append(newly, pr)
		d.NewSeenKeys = append(d.NewSeenKeys, key)
	}

	if len(newly) == 0 {
		return d
	}

	d.Reason = SuppressionGate(in.Settings, in.PresenceActive, in.SnoozeUntil, in.Now)
	d.Suppressed = d.Reason != model.SuppressNone

	d.Intents = make([]model.NotificationIntent, 0, len(newly))
	for _, pr := range newly {
		d.Intents = append(d.Intents, model.NotificationIntent{
			PR:         pr,
			Suppressed: d.Suppressed,
			Reason:     d.Reason,
		})
	}

	if !d.Suppressed {
		d.Notify = newly
	}
	return d
}

// SuppressionGate returns the reason notifications are silenced this cycle,
// or SuppressNone. Snooze takes precedence, then the microphone, then quiet
// hours. Malformed quiet-hours bounds disable that check.
func SuppressionGate(s model.Settings, presenceActive bool, snoozeUntil, now time.Time) model.SuppressReason {
	if now.Before(snoozeUntil) {
		return model.SuppressSnoozed
	}
	if s.MicMuteEnabled && presenceActive {
		return model.SuppressMicActive
	}
	if w, ok := s.QuietWindow(); ok && w.Contains(now) {
		return model.SuppressQuietHours
	}
	return model.SuppressNone
}

// FilterPRs keeps the PRs whose repository matches the allowlist. An empty
// allowlist keeps everything.
func FilterPRs(prs []model.PullRequest, filters []string) []model.PullRequest {
	if len(filters) == 0 {
		return prs
	}

	kept := make([]model.PullRequest, 0, len(prs))
	for _, pr := range prs {
		if MatchesFilter(pr, filters) {
			kept = append(kept, pr)
		}
	}
	return kept
}

// MatchesFilter reports whether pr matches any allowlist entry. An entry with
// a slash must equal RepoFullName; an entry without one must equal the owner.
// Comparison is case-sensitive.
func MatchesFilter(pr model.PullRequest, filters []string) bool {
	owner := pr.Owner()
	for _, f := range filters {
		if strings.Contains(f, "/") {
			if f == pr.RepoFullName {
				return true
			}
			continue
		}
		if f == owner {
			return true
		}
	}
	return false
}
