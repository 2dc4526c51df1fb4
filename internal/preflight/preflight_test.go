package preflight

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"techxfer/internal/remote"
	"techxfer/internal/session"
	"techxfer/internal/testsupport"
)

type listerFunc func(ctx context.Context, projectID string) ([]session.Session, error)

func (f listerFunc) ListSessions(ctx context.Context, projectID string) ([]session.Session, error) {
	return f(ctx, projectID)
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckSessionStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.ProjectID = "proj-1"

	tests := []struct {
		name       string
		err        error
		wantPassed bool
		wantDetail string
	}{
		{name: "reachable", wantPassed: true, wantDetail: "http://127.0.0.1:0 (1 sessions)"},
		{name: "bad token", err: &remote.StatusError{StatusCode: http.StatusUnauthorized}, wantDetail: "auth failed (check api.token)"},
		{name: "server error", err: &remote.StatusError{StatusCode: http.StatusBadGateway}, wantDetail: "store returned http 502"},
		{name: "timeout", err: context.DeadlineExceeded, wantDetail: "health check timed out (session store unresponsive)"},
		{name: "other", err: errors.New("dial refused"), wantDetail: "dial refused"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotProject string
			lister := listerFunc(func(_ context.Context, projectID string) ([]session.Session, error) {
				gotProject = projectID
				if tc.err != nil {
					return nil, tc.err
				}
				return []session.Session{{ID: "s1"}}, nil
			})
			result := CheckSessionStore(context.Background(), cfg, lister)
			if result.Passed != tc.wantPassed || result.Detail != tc.wantDetail {
				t.Fatalf("got %+v, want passed=%v detail=%q", result, tc.wantPassed, tc.wantDetail)
			}
			if gotProject != "proj-1" {
				t.Fatalf("expected configured project, got %q", gotProject)
			}
		})
	}
}

func TestCheckSessionStore_MissingToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Token = ""
	called := false
	lister := listerFunc(func(context.Context, string) ([]session.Session, error) {
		called = true
		return nil, nil
	})
	result := CheckSessionStore(context.Background(), cfg, lister)
	if result.Passed || called {
		t.Fatalf("expected failure without contacting the store, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg, nil)
	// state dir, log dir, journal, notifications
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if results[3].Detail != "Disabled" {
		t.Fatalf("expected notifications disabled, got %q", results[3].Detail)
	}
}

func TestRunAll_FlagsMissingStateDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournal(false))
	results := RunAll(context.Background(), cfg, testsupport.NewFakeStore())
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if results[0].Passed {
		t.Fatal("state directory was never created; expected failure")
	}
	if !results[2].Passed {
		t.Fatalf("fake store should be reachable: %s", results[2].Detail)
	}
	if results[3].Detail != "Disabled" {
		t.Fatalf("expected journal disabled, got %q", results[3].Detail)
	}
}
