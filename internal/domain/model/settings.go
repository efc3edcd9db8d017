package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Settings bounds enforced at the write boundary.
const (
	MinPollIntervalSeconds = 60
	MaxPollIntervalSeconds = 3600
	MaxFilters             = 100
	MaxFilterLength        = 200
	MaxTokenLength         = 500
)

// soundExtensions lists the custom sound file extensions the sound sink can play.
var soundExtensions = map[string]bool{
	".wav": true,
}

// Settings holds the user's notification preferences. The JSON field names are
// the persisted record shape and must stay stable across releases.
type Settings struct {
	PollInterval      int      `json:"pollInterval"` // Seconds.
	SoundEnabled      bool     `json:"soundEnabled"`
	ToastEnabled      bool     `json:"toastEnabled"`
	SpeechEnabled     bool     `json:"ttsEnabled"`
	CustomSoundPath   string   `json:"customSoundPath"`
	AutoStart         bool     `json:"autoStart"`
	Filters           []string `json:"filters"`
	QuietHoursEnabled bool     `json:"quietHoursEnabled"`
	QuietHoursStart   string   `json:"quietHoursStart"` // "HH:MM" local time.
	QuietHoursEnd     string   `json:"quietHoursEnd"`   // "HH:MM" local time.
	MicMuteEnabled    bool     `json:"micMuteEnabled"`
}

// DefaultSettings returns the preferences used before the user saves anything.
func DefaultSettings() Settings {
	return Settings{
		PollInterval:      300,
		SoundEnabled:      true,
		ToastEnabled:      true,
		SpeechEnabled:     true,
		CustomSoundPath:   "",
		AutoStart:         true,
		Filters:           []string{},
		QuietHoursEnabled: false,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "08:00",
		MicMuteEnabled:    true,
	}
}

// ValidationError reports a settings or token value rejected at the write
// boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks every rule a settings record must satisfy before it is
// persisted. It returns a *ValidationError describing the first violation.
func (s Settings) Validate() error {
	if s.PollInterval < MinPollIntervalSeconds || s.PollInterval > MaxPollIntervalSeconds {
		return invalid("pollInterval", "must be between %d and %d seconds", MinPollIntervalSeconds, MaxPollIntervalSeconds)
	}
	if !s.SoundEnabled && !s.ToastEnabled && !s.SpeechEnabled {
		return invalid("channels", "at least one of sound, toast or speech must be enabled")
	}
	if s.SoundEnabled && !IsValidSoundPath(s.CustomSoundPath) {
		return invalid("customSoundPath", "must be empty or an absolute path to a .wav file")
	}
	if len(s.Filters) > MaxFilters {
		return invalid("filters", "at most %d entries allowed", MaxFilters)
	}
	for _, f := range s.Filters {
		if len(f) > MaxFilterLength {
			return invalid("filters", "entry longer than %d characters", MaxFilterLength)
		}
	}
	if _, err := ParseClockTime(s.QuietHoursStart); err != nil {
		return invalid("quietHoursStart", "%v", err)
	}
	if _, err := ParseClockTime(s.QuietHoursEnd); err != nil {
		return invalid("quietHoursEnd", "%v", err)
	}
	return nil
}

// IsValidSoundPath reports whether p is empty or an absolute path with a
// recognised sound extension.
func IsValidSoundPath(p string) bool {
	if p == "" {
		return true
	}
	if !soundExtensions[strings.ToLower(filepath.Ext(p))] {
		return false
	}
	return filepath.IsAbs(p)
}

// ValidateToken checks a personal access token before it is stored.
func ValidateToken(token string) error {
	if token == "" {
		return invalid("token", "must not be empty")
	}
	if len(token) > MaxTokenLength {
		return invalid("token", "longer than %d characters", MaxTokenLength)
	}
	return nil
}

// PollEvery returns the poll interval as a duration. Records persisted before
// validation existed may hold out-of-range values; those are clamped.
func (s Settings) PollEvery() time.Duration {
	secs := s.PollInterval
	switch {
	case secs <= 0:
		secs = DefaultSettings().PollInterval
	case secs < MinPollIntervalSeconds:
		secs = MinPollIntervalSeconds
	case secs > MaxPollIntervalSeconds:
		secs = MaxPollIntervalSeconds
	}
	return time.Duration(secs) * time.Second
}

// SoundFile returns the custom sound path to play, or "" for the platform
// default. An invalid stored path falls back to the default.
func (s Settings) SoundFile() string {
	if s.CustomSoundPath == "" || !IsValidSoundPath(s.CustomSoundPath) {
		return ""
	}
	return s.CustomSoundPath
}
