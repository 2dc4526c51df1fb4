// Package notifications publishes batch outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never check whether alerts are enabled. BatchNotifier adapts the
// service to the poller's observer hook.
package notifications
