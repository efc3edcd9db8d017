package model

import "time"

// SeenEntry records that a PR identity has already been surfaced (or
// suppressed) once and must not trigger another notification.
type SeenEntry struct {
	Key    string
	SeenAt time.Time
}

// SeenKeys returns the set of keys present in entries.
func SeenKeys(entries []SeenEntry) map[string]struct{} {
	keys := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keys[e.Key] = struct{}{}
	}
	return keys
}
