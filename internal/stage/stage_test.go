package stage_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"techxfer/internal/logging"
	"techxfer/internal/session"
	"techxfer/internal/stage"
	"techxfer/internal/testsupport"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to stage.Stage
		want     bool
	}{
		{stage.Ingestion, stage.Preparation, true},
		{stage.Preparation, stage.Verification, true},
		{stage.Verification, stage.Complete, true},
		{stage.Preparation, stage.Ingestion, true},
		{stage.Verification, stage.Ingestion, true},
		{stage.Verification, stage.Preparation, false},
		{stage.Ingestion, stage.Verification, false},
		{stage.Complete, stage.Verification, false},
		{stage.Complete, stage.Ingestion, false},
		{stage.Ingestion, stage.Ingestion, false},
	}
	for _, tt := range tests {
		if got := stage.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

type machineFixture struct {
	store   *testsupport.FakeStore
	tracker *session.Tracker
	holder  *session.Holder
	machine *stage.Machine
}

func newMachine(t *testing.T, s session.Session) machineFixture {
	t.Helper()
	store := testsupport.NewFakeStore()
	store.AddSession(s)
	tracker := session.NewTracker()
	holder := session.NewHolder(tracker)
	writer := session.NewContentWriter(store, holder, logging.NewNop())
	return machineFixture{
		store:   store,
		tracker: tracker,
		holder:  holder,
		machine: stage.NewMachine(holder, writer, logging.NewNop()),
	}
}

func (f machineFixture) selectSession(t *testing.T, id string) session.Ticket {
	t.Helper()
	ticket := f.tracker.Switch(id)
	if !f.holder.Load(ticket, f.store.Session(id)) {
		t.Fatal("load failed")
	}
	return ticket
}

func TestTransitionFromEmptyContent(t *testing.T) {
	f := newMachine(t, session.Session{ID: "s1"})
	ticket := f.selectSession(t, "s1")

	updated, err := f.machine.Transition(context.Background(), ticket, stage.Preparation)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(updated.Content), &doc); err != nil {
		t.Fatalf("content not JSON: %v", err)
	}
	if len(doc) != 1 || doc["workflow_stage"] != "preparation" {
		t.Fatalf("unexpected content %v", doc)
	}
	if got := f.store.Session("s1").Content; got != updated.Content {
		t.Fatalf("store has %q, local has %q", got, updated.Content)
	}
}

func TestTransitionKeepsOtherKeys(t *testing.T) {
	f := newMachine(t, session.Session{ID: "s1", Content: `{"workflow_stage":"verification","comments":{"b1":["x"]},"agent":{"k":1}}`})
	ticket := f.selectSession(t, "s1")

	updated, err := f.machine.Transition(context.Background(), ticket, stage.Ingestion)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(updated.Content), &doc); err != nil {
		t.Fatal(err)
	}
	if string(doc["workflow_stage"]) != `"ingestion"` || string(doc["agent"]) != `{"k":1}` || string(doc["comments"]) != `{"b1":["x"]}` {
		t.Fatalf("unexpected content %s", updated.Content)
	}
}

func TestTransitionRejectsInvalidEdge(t *testing.T) {
	f := newMachine(t, session.Session{ID: "s1", Content: `{"workflow_stage":"verification"}`})
	ticket := f.selectSession(t, "s1")

	if _, err := f.machine.Transition(context.Background(), ticket, stage.Preparation); !errors.Is(err, stage.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if n := f.store.CallCount("UpdateContent"); n != 0 {
		t.Fatalf("invalid transition must not write, got %d writes", n)
	}
}

func TestTransitionFailureLeavesLocalContent(t *testing.T) {
	f := newMachine(t, session.Session{ID: "s1"})
	ticket := f.selectSession(t, "s1")
	f.store.UpdateErr = errors.New("offline")

	if _, err := f.machine.Transition(context.Background(), ticket, stage.Preparation); err == nil {
		t.Fatal("expected error")
	}
	snap, _ := f.holder.Snapshot(ticket)
	if snap.Content != "" {
		t.Fatalf("local content changed on failure: %q", snap.Content)
	}
}

func TestTransitionAfterSwitchIsStale(t *testing.T) {
	f := newMachine(t, session.Session{ID: "s1"})
	ticket := f.selectSession(t, "s1")
	f.tracker.Switch("s2")

	if _, err := f.machine.Transition(context.Background(), ticket, stage.Preparation); !session.IsStale(err) {
		t.Fatalf("expected stale error, got %v", err)
	}
}

func TestPersistedFallsBackToIngestion(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"workflow_stage":"bogus"}`, `{"workflow_stage":3}`} {
		if got := stage.Persisted(raw); got != stage.Ingestion {
			t.Errorf("Persisted(%q) = %s", raw, got)
		}
	}
	if got := stage.Persisted(`{"workflow_stage":"Complete"}`); got != stage.Complete {
		t.Errorf("got %s", got)
	}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name   string
		s      session.Session
		stage  stage.Stage
		wizard stage.WizardStep
		resume bool
	}{
		{"fresh", session.Session{Status: session.StatusPending}, stage.Ingestion, stage.StepStart, false},
		{"processing", session.Session{Status: session.StatusProcessing}, stage.Ingestion, stage.StepProcessing, true},
		{"completed", session.Session{Status: session.StatusCompleted}, stage.Ingestion, stage.StepReview, false},
		{"legacy lifecycle", session.Session{Status: session.StatusPending, Content: `{"lifecycle":{"steps":["a"],"currentStep":0}}`}, stage.Ingestion, stage.StepReview, false},
		{"empty lifecycle", session.Session{Status: session.StatusPending, Content: `{"lifecycle":{"steps":[],"currentStep":0}}`}, stage.Ingestion, stage.StepStart, false},
		{"persisted stage", session.Session{Status: session.StatusCompleted, Content: `{"workflow_stage":"verification"}`}, stage.Verification, stage.StepReview, false},
		{"processing with stage", session.Session{Status: session.StatusProcessing, Content: `{"workflow_stage":"preparation"}`}, stage.Preparation, stage.StepProcessing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stage.Infer(tt.s)
			if got.Stage != tt.stage || got.Wizard != tt.wizard || got.ResumePolling != tt.resume {
				t.Fatalf("Infer = %+v", got)
			}
		})
	}
}

func TestAfterTerminal(t *testing.T) {
	if stage.AfterTerminal(session.StatusCompleted) != stage.StepReview {
		t.Fatal("completed should land on review")
	}
	if stage.AfterTerminal(session.StatusCancelled) != stage.StepDeliverables || stage.AfterTerminal(session.StatusError) != stage.StepDeliverables {
		t.Fatal("cancelled and error should return to deliverables")
	}
}
