package main

import (
	"slices"
	"strings"
	"testing"

	"techxfer/internal/session"
	"techxfer/internal/testsupport"
)

func scriptBatch(store *testsupport.FakeStore, id string, final session.Status) {
	store.AddSession(session.Session{ID: id, Title: "Pump housing"})
	store.Script(id,
		testsupport.StatusStep{Status: session.StatusPending},
		testsupport.StatusStep{Status: session.StatusProcessing, Pending: 2},
		testsupport.StatusStep{Status: session.StatusProcessing, Pending: 1},
		testsupport.StatusStep{Status: final},
	)
}

func TestConvertRunsBatchToCompletion(t *testing.T) {
	env := setupCLITestEnv(t)
	scriptBatch(env.store, "s1", session.StatusCompleted)

	out, stderr, err := runCLI(t, []string{"convert", "s1", "--doc", "Quality Control Plan"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, out, "completed after 3 polls")
	requireContains(t, stderr, "Processing: 2/4 tasks completed...")
	requireContains(t, stderr, "Completed.")

	if len(env.store.Queued) != 1 || len(env.store.Queued[0]) != 4 {
		t.Fatalf("expected one batch of 4 tasks, got %v", env.store.Queued)
	}

	out, _, err = runCLI(t, []string{"history", "list", "--session", "s1"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "Completed")
	requireContains(t, out, "convert")
}

func TestConvertRequiresDescriptionForDescriptionStart(t *testing.T) {
	env := setupCLITestEnv(t)
	env.store.AddSession(session.Session{ID: "s1"})
	_, _, err := runCLI(t, []string{"convert", "s1", "--start", "description"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--description") {
		t.Fatalf("expected missing description error, got %v", err)
	}
	if env.store.CallCount("QueueTasks") != 0 {
		t.Fatal("nothing should be queued")
	}
}

func TestBatchErrorExitsNonZero(t *testing.T) {
	env := setupCLITestEnv(t)
	scriptBatch(env.store, "s1", session.StatusError)

	_, stderr, err := runCLI(t, []string{"metadata", "generate", "s1"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "techxfer retry s1") {
		t.Fatalf("expected retry hint, got %v", err)
	}
	requireContains(t, stderr, "Execution Error.")
}

func TestRunReadsTasksFromYAML(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "list", body: "- Draft the SOP\n- \"\"\n- Review tooling\n"},
		{name: "mapping", body: "tasks:\n  - Draft the SOP\n  - Review tooling\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := setupCLITestEnv(t)
			scriptBatch(env.store, "s1", session.StatusCompleted)
			path := writeFile(t, env.baseDir, "tasks.yaml", tc.body)

			if _, stderr, err := runCLI(t, []string{"run", "s1", "--tasks", path}, env.configPath); err != nil {
				t.Fatalf("run: %v\nstderr: %s", err, stderr)
			}
			want := []string{"Draft the SOP", "Review tooling"}
			if len(env.store.Queued) != 1 || !slices.Equal(env.store.Queued[0], want) {
				t.Fatalf("queued %v, want %v", env.store.Queued, want)
			}
		})
	}
}

func TestRunRejectsEmptyTaskFile(t *testing.T) {
	env := setupCLITestEnv(t)
	env.store.AddSession(session.Session{ID: "s1"})
	path := writeFile(t, env.baseDir, "tasks.yaml", "tasks: []\n")
	if _, _, err := runCLI(t, []string{"run", "s1", "--tasks", path}, env.configPath); err == nil {
		t.Fatal("expected empty task file to fail")
	}
}

func TestWatchResumesRunningBatch(t *testing.T) {
	env := setupCLITestEnv(t)
	env.store.AddSession(session.Session{ID: "s1"})
	env.store.Script("s1",
		testsupport.StatusStep{Status: session.StatusProcessing, Pending: 3},
		testsupport.StatusStep{Status: session.StatusProcessing, Pending: 1},
		testsupport.StatusStep{Status: session.StatusCancelled},
	)

	out, stderr, err := runCLI(t, []string{"watch", "s1"}, env.configPath)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	requireContains(t, stderr, "Processing... 1 tasks remaining")
	requireContains(t, out, "was cancelled")

	out, _, err = runCLI(t, []string{"watch", "s1"}, env.configPath)
	if err != nil {
		t.Fatalf("watch idle: %v", err)
	}
	requireContains(t, out, "Session is not processing (status: Cancelled)")
}

func TestCancelAndRetry(t *testing.T) {
	env := setupCLITestEnv(t)
	env.store.AddSession(session.Session{ID: "s1", Status: session.StatusError})

	out, _, err := runCLI(t, []string{"cancel", "s1"}, env.configPath)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "Cancellation requested")
	if env.store.CallCount("CancelSession") != 1 {
		t.Fatal("expected one cancel request")
	}

	env.store.Script("s1",
		testsupport.StatusStep{Status: session.StatusError},
		testsupport.StatusStep{Status: session.StatusCompleted},
	)
	out, _, err = runCLI(t, []string{"retry", "s1"}, env.configPath)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	requireContains(t, out, "completed after 1 polls")
	if env.store.CallCount("RetrySession") != 1 {
		t.Fatal("expected one retry request")
	}
}

func TestHistoryShowAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	scriptBatch(env.store, "s1", session.StatusCompleted)
	if _, _, err := runCLI(t, []string{"metadata", "generate", "s1"}, env.configPath); err != nil {
		t.Fatalf("metadata generate: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	start := strings.Index(out, `"ID": "`)
	if start < 0 {
		t.Fatalf("no batch id in %s", out)
	}
	id := out[start+len(`"ID": "`):]
	id = id[:strings.Index(id, `"`)]

	out, _, err = runCLI(t, []string{"history", "show", id}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "Kind:     metadata")
	requireContains(t, out, "Task 1:")

	out, _, err = runCLI(t, []string{"history", "prune", "--older-than", "1h"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 0 batches")

	out, _, err = runCLI(t, []string{"history", "repair"}, env.configPath)
	if err != nil {
		t.Fatalf("history repair: %v", err)
	}
	requireContains(t, out, "Marked 0 batches interrupted")
}
