package model

// TrayState is the status the presentation shell renders for the daemon.
type TrayState string

const (
	TrayStateNormal       TrayState = "normal"
	TrayStateError        TrayState = "error"
	TrayStateUnconfigured TrayState = "unconfigured"
	TrayStateQuiet        TrayState = "quiet"
)

// SuppressReason names the gate that silenced a cycle's notifications.
type SuppressReason string

const (
	SuppressNone       SuppressReason = ""
	SuppressSnoozed    SuppressReason = "snoozed"
	SuppressMicActive  SuppressReason = "mic_active"
	SuppressQuietHours SuppressReason = "quiet_hours"
)
