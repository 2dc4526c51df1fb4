package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"techxfer/internal/config"
	"techxfer/internal/journal"
	"techxfer/internal/remote"
	"techxfer/internal/session"
)

// SessionLister is the store call used to check reachability.
type SessionLister interface {
	ListSessions(ctx context.Context, projectID string) ([]session.Session, error)
}

// CheckSessionStore verifies that the session store is reachable and accepts
// the configured token. It lists the configured project once with a short
// timeout.
func CheckSessionStore(ctx context.Context, cfg *config.Config, lister SessionLister) Result {
	const name = "Session store"
	if strings.TrimSpace(cfg.API.Token) == "" {
		return Result{Name: name, Detail: "api token missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sessions, err := lister.ListSessions(checkCtx, cfg.API.ProjectID)
	if err != nil {
		return Result{Name: name, Detail: summarizeStoreError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d sessions)", cfg.API.BaseURL, len(sessions))}
}

// CheckJournal opens the batch journal to confirm the database is usable.
func CheckJournal(ctx context.Context, cfg *config.Config) Result {
	const name = "Batch journal"
	if !cfg.Journal.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	store, err := journal.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.JournalPath(), err)}
	}
	defer store.Close()
	if _, err := store.List(ctx, "", 1); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", store.Path(), err)}
	}
	return Result{Name: name, Passed: true, Detail: store.Path()}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeStoreError produces a human-readable summary for store check failures.
func summarizeStoreError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (session store unresponsive)"
	}
	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "auth failed (check api.token)"
		default:
			return fmt.Sprintf("store returned http %d", statusErr.StatusCode)
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (session store unreachable)"
	}
	return err.Error()
}
