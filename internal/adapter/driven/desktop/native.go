package desktop

import "github.com/gen2brain/beeep"

// Alerter raises native desktop notifications without an external command.
type Alerter interface {
	Notify(title, message string) error
	Beep() error
}

// NativeAlerter uses the platform notification service: D-Bus on Linux, the
// Windows toast API and Notification Center on macOS.
type NativeAlerter struct{}

var _ Alerter = NativeAlerter{}

// Notify shows a desktop notification.
func (NativeAlerter) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Beep plays the system alert tone.
func (NativeAlerter) Beep() error {
	return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
}
