package session_test

import (
	"context"
	"errors"
	"testing"

	"techxfer/internal/content"
	"techxfer/internal/logging"
	"techxfer/internal/session"
	"techxfer/internal/testsupport"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw      string
		want     session.Status
		ok       bool
		terminal bool
	}{
		{"processing", session.StatusProcessing, true, false},
		{" Completed ", session.StatusCompleted, true, true},
		{"cancelled", session.StatusCancelled, true, true},
		{"error", session.StatusError, true, true},
		{"pending", session.StatusPending, true, false},
		{"paused", session.Status("paused"), false, false},
	}
	for _, tt := range tests {
		got, ok := session.ParseStatus(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseStatus(%q) = %q,%v want %q,%v", tt.raw, got, ok, tt.want, tt.ok)
		}
		if got.IsTerminal() != tt.terminal {
			t.Fatalf("%q terminal = %v", got, got.IsTerminal())
		}
	}
}

func TestBlobKinds(t *testing.T) {
	if !(session.Blob{FileName: "bom.CSV"}).IsCSV() {
		t.Fatal("expected .CSV to be csv")
	}
	if !(session.Blob{FileName: "table", ContentType: "text/csv; charset=utf-8"}).IsCSV() {
		t.Fatal("expected text/csv content type to be csv")
	}
	if (session.Blob{FileName: "Metadata.json"}).IsMetadata() {
		t.Fatal("metadata match is exact")
	}
}

func TestTrackerGenerations(t *testing.T) {
	tracker := session.NewTracker()
	if _, err := tracker.Active(); !errors.Is(err, session.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	first := tracker.Switch("a")
	if !tracker.Fresh(first) {
		t.Fatal("expected fresh ticket")
	}
	again := tracker.Switch("a")
	if tracker.Fresh(first) {
		t.Fatal("reselecting the same session must invalidate older tickets")
	}
	if !tracker.Fresh(again) {
		t.Fatal("expected new ticket to be fresh")
	}
	tracker.Switch("")
	if tracker.Fresh(again) || tracker.Fresh(session.Ticket{}) {
		t.Fatal("cleared selection must not be fresh")
	}
}

func TestHolderRejectsStaleTickets(t *testing.T) {
	tracker := session.NewTracker()
	holder := session.NewHolder(tracker)
	a := tracker.Switch("a")
	if !holder.Load(a, session.Session{ID: "a", Content: "{}"}) {
		t.Fatal("expected load")
	}
	if holder.Load(a, session.Session{ID: "b"}) {
		t.Fatal("load with mismatched id must fail")
	}
	b := tracker.Switch("b")
	if holder.Apply(a, func(s *session.Session) { s.Title = "stale" }) {
		t.Fatal("apply with stale ticket must not run")
	}
	if _, ok := holder.Snapshot(b); ok {
		t.Fatal("holder has not loaded b yet")
	}
	holder.Load(b, session.Session{ID: "b", Title: "B"})
	if holder.Replace(a, session.Session{ID: "a", Title: "late"}) {
		t.Fatal("late response for a must not replace b")
	}
	got, ok := holder.Snapshot(b)
	if !ok || got.Title != "B" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func newWriter(t *testing.T, initial string) (*testsupport.FakeStore, *session.Tracker, *session.Holder, *session.ContentWriter, session.Ticket) {
	t.Helper()
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1", Content: initial})
	tracker := session.NewTracker()
	holder := session.NewHolder(tracker)
	ticket := tracker.Switch("s1")
	holder.Load(ticket, store.Session("s1"))
	return store, tracker, holder, session.NewContentWriter(store, holder, logging.NewNop()), ticket
}

func TestPatchPersistsAndAppliesLocally(t *testing.T) {
	store, _, holder, writer, ticket := newWriter(t, "")
	payload, err := writer.Patch(context.Background(), ticket, session.ApplyOnSuccess, content.SetStage("preparation"))
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if payload != `{"workflow_stage":"preparation"}` {
		t.Fatalf("unexpected payload %s", payload)
	}
	if store.Session("s1").Content != payload {
		t.Fatalf("store content = %s", store.Session("s1").Content)
	}
	local, _ := holder.Snapshot(ticket)
	if local.Content != payload {
		t.Fatalf("local content = %s", local.Content)
	}
}

func TestPatchBuildsOnLatestLocalContent(t *testing.T) {
	_, _, holder, writer, ticket := newWriter(t, `{"agent":"x"}`)
	ctx := context.Background()
	if _, err := writer.Patch(ctx, ticket, session.ApplyOptimistic, content.AppendComment("b1", "one")); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := writer.Patch(ctx, ticket, session.ApplyOnSuccess, content.SetStage("verification")); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := writer.Patch(ctx, ticket, session.ApplyOptimistic, content.SetLifecycle(content.Lifecycle{Steps: []string{"a"}})); err != nil {
		t.Fatalf("lifecycle: %v", err)
	}
	local, _ := holder.Snapshot(ticket)
	doc := content.ParseLenient(local.Content)
	if !doc.Has("agent") || !doc.Has(content.KeyComments) || !doc.Has(content.KeyWorkflowStage) || !doc.Has(content.KeyLifecycle) {
		t.Fatalf("expected union of all owners, got %s", local.Content)
	}
}

func TestOptimisticPatchRollsBackOnFailure(t *testing.T) {
	store, _, holder, writer, ticket := newWriter(t, `{"workflow_stage":"ingestion"}`)
	store.UpdateErr = errors.New("boom")
	_, err := writer.Patch(context.Background(), ticket, session.ApplyOptimistic, content.AppendComment("b1", "note"))
	if err == nil {
		t.Fatal("expected error")
	}
	local, _ := holder.Snapshot(ticket)
	if local.Content != `{"workflow_stage":"ingestion"}` {
		t.Fatalf("expected rollback, got %s", local.Content)
	}
}

func TestPatchOnSuccessLeavesLocalOnFailure(t *testing.T) {
	store, _, holder, writer, ticket := newWriter(t, "")
	store.UpdateErr = errors.New("boom")
	if _, err := writer.Patch(context.Background(), ticket, session.ApplyOnSuccess, content.SetStage("preparation")); err == nil {
		t.Fatal("expected error")
	}
	local, _ := holder.Snapshot(ticket)
	if local.Content != "" {
		t.Fatalf("expected untouched local content, got %q", local.Content)
	}
}

func TestPatchAfterSwitchIsStale(t *testing.T) {
	_, tracker, _, writer, ticket := newWriter(t, "")
	tracker.Switch("s2")
	if _, err := writer.Patch(context.Background(), ticket, session.ApplyOnSuccess, content.SetStage("preparation")); !session.IsStale(err) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}
