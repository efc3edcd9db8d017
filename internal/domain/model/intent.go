package model

// NotificationIntent is produced for each newly observed PR in a cycle and
// consumed immediately by the notification sinks. It is never stored.
type NotificationIntent struct {
	PR         PullRequest
	Suppressed bool
	Reason     SuppressReason
}
