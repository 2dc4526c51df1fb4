package preflight

import (
	"context"
	"strings"

	"techxfer/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for cfg. The store check is skipped
// when lister is nil.
func RunAll(ctx context.Context, cfg *config.Config, lister SessionLister) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Paths.LogDir != "" && cfg.Paths.LogDir != cfg.Paths.StateDir {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if lister != nil {
		results = append(results, CheckSessionStore(ctx, cfg, lister))
	}
	results = append(results, CheckJournal(ctx, cfg))
	results = append(results, CheckNotifications(cfg))
	return results
}

// CheckNotifications reports whether ntfy alerts are configured. No message
// is sent; use "techxfer test-notify" for that.
func CheckNotifications(cfg *config.Config) Result {
	const name = "Notifications"
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}
