package model

import (
	"errors"
	"fmt"
	"time"
)

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses a strict two-digit "HH:MM" value.
func ParseClockTime(s string) (ClockTime, error) {
	if len(s) != 5 || s[2] != ':' {
		return ClockTime{}, fmt.Errorf("%q is not in HH:MM format", s)
	}
	hour, ok1 := twoDigits(s[0:2])
	minute, ok2 := twoDigits(s[3:5])
	if !ok1 || !ok2 {
		return ClockTime{}, fmt.Errorf("%q is not in HH:MM format", s)
	}
	if hour > 23 || minute > 59 {
		return ClockTime{}, errors.New("hour must be 00-23 and minute 00-59")
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// Minutes returns the number of minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// String formats the time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// QuietWindow is the half-open local-time interval [Start, End). When Start is
// later than End the window wraps past midnight.
type QuietWindow struct {
	Start ClockTime
	End   ClockTime
}

// Contains reports whether the local wall-clock time of t falls inside the
// window. An empty window (Start == End) contains nothing.
func (w QuietWindow) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	start, end := w.Start.Minutes(), w.End.Minutes()
	if start <= end {
		return m >= start && m < end
	}
	return m >= start || m < end
}

// QuietWindow returns the configured quiet-hours window. ok is false when
// quiet hours are disabled or either bound is malformed, in which case the
// feature is treated as off.
func (s Settings) QuietWindow() (QuietWindow, bool) {
	if !s.QuietHoursEnabled {
		return QuietWindow{}, false
	}
	start, err := ParseClockTime(s.QuietHoursStart)
	if err != nil {
		return QuietWindow{}, false
	}
	end, err := ParseClockTime(s.QuietHoursEnd)
	if err != nil {
		return QuietWindow{}, false
	}
	return QuietWindow{Start: start, End: end}, true
}
