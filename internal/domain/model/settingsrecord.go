package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// LegacySettings is the pre-channel-toggle record shape. It selected toast,
// speech or both through NotificationMode and disabled sound with
// NotificationSound == "none".
type LegacySettings struct {
	Settings
	NotificationMode  string `json:"notificationMode"`
	NotificationSound string `json:"notificationSound"`
}

// SettingsRecord is a decoded settings record in either the legacy or the
// current shape. Exactly one of Current and Legacy is non-nil.
type SettingsRecord struct {
	Current *Settings
	Legacy  *LegacySettings

	// Skipped lists the record keys whose values had the wrong type. Those
	// fields keep their default values.
	Skipped []string
}

// DecodeSettingsRecord decodes a persisted settings record. Fields missing
// from the record, or holding a value of the wrong type, take their default
// values. A record is current when it carries a boolean soundEnabled field.
// Only a record that is not a JSON object is an error.
func DecodeSettingsRecord(raw []byte) (SettingsRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return SettingsRecord{}, fmt.Errorf("decode settings record: %w", err)
	}

	var sound bool
	if v, ok := fields["soundEnabled"]; ok && json.Unmarshal(v, &sound) == nil {
		s := DefaultSettings()
		skipped := decodeFields(fields, &s)
		if s.Filters == nil {
			s.Filters = []string{}
		}
		return SettingsRecord{Current: &s, Skipped: skipped}, nil
	}

	legacy := LegacySettings{Settings: DefaultSettings()}
	skipped := decodeFields(fields, &legacy)
	return SettingsRecord{Legacy: &legacy, Skipped: skipped}, nil
}

// decodeFields applies each field to dst on its own so one bad value cannot
// discard the rest. It returns the keys that failed, sorted.
func decodeFields[T any](fields map[string]json.RawMessage, dst *T) []string {
	var skipped []string
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		one, err := json.Marshal(map[string]json.RawMessage{key: fields[key]})
		if err != nil {
			skipped = append(skipped, key)
			continue
		}
		next := *dst
		if err := json.Unmarshal(one, &next); err != nil {
			skipped = append(skipped, key)
			continue
		}
		*dst = next
	}
	return skipped
}

// Upgrade returns the record in the current shape. migrated is true when the
// record was legacy and the caller should persist the result.
func (r SettingsRecord) Upgrade() (s Settings, migrated bool) {
	if r.Current != nil {
		return *r.Current, false
	}
	if r.Legacy != nil {
		return MigrateLegacySettings(*r.Legacy), true
	}
	return DefaultSettings(), false
}

// MigrateLegacySettings converts a legacy record to the current shape.
func MigrateLegacySettings(l LegacySettings) Settings {
	s := l.Settings

	switch l.NotificationMode {
	case "toast":
		s.ToastEnabled, s.SpeechEnabled = true, false
	case "tts":
		s.ToastEnabled, s.SpeechEnabled = false, true
	default:
		s.ToastEnabled, s.SpeechEnabled = true, true
	}
	s.SoundEnabled = l.NotificationSound != "none"

	if s.Filters == nil {
		s.Filters = []string{}
	}
	return s
}
