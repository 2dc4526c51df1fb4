package workbench_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"techxfer/internal/logging"
	"techxfer/internal/prompts"
	"techxfer/internal/session"
	"techxfer/internal/stage"
	"techxfer/internal/testsupport"
	"techxfer/internal/workbench"
	"techxfer/internal/workflow"
)

func noWait(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newWorkbench(t *testing.T, store *testsupport.FakeStore, opts ...workbench.Option) *workbench.Workbench {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	opts = append([]workbench.Option{workbench.WithSleeper(noWait)}, opts...)
	return workbench.New(cfg, store, logging.NewNop(), opts...)
}

func TestSelectInfersInitialState(t *testing.T) {
	tests := []struct {
		name    string
		session session.Session
		stage   stage.Stage
		wizard  stage.WizardStep
		resume  bool
	}{
		{
			name:    "fresh session",
			session: session.Session{ID: "s1", Status: session.StatusPending},
			stage:   stage.Ingestion,
			wizard:  stage.StepStart,
		},
		{
			name:    "processing resumes polling",
			session: session.Session{ID: "s1", Status: session.StatusProcessing, PendingTasks: 3},
			stage:   stage.Ingestion,
			wizard:  stage.StepProcessing,
			resume:  true,
		},
		{
			name:    "older session with lifecycle skips to review",
			session: session.Session{ID: "s1", Status: session.StatusPending, Content: `{"lifecycle":{"steps":["Design"],"currentStep":0}}`},
			stage:   stage.Ingestion,
			wizard:  stage.StepReview,
		},
		{
			name:    "persisted stage wins",
			session: session.Session{ID: "s1", Status: session.StatusCompleted, Content: `{"workflow_stage":"verification"}`},
			stage:   stage.Verification,
			wizard:  stage.StepReview,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := testsupport.NewFakeStore()
			store.AddSession(tc.session)
			wb := newWorkbench(t, store)

			sel, err := wb.Select(context.Background(), "s1")
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if sel.Stage != tc.stage || sel.Wizard != tc.wizard || sel.ResumePolling != tc.resume {
				t.Fatalf("selection = %+v", sel)
			}
			if step, _ := wb.Wizard(); step != tc.wizard {
				t.Fatalf("wizard = %v, want %v", step, tc.wizard)
			}
		})
	}
}

func TestSelectLoadsMetadataProjection(t *testing.T) {
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1"})
	store.AddBlob("s1", session.MetadataFileName, "application/json", []byte(`{"revision":"A.1"}`))
	store.AddBlob("s1", "bom.csv", "text/csv", []byte("part,qty\nbolt,4\n"))
	wb := newWorkbench(t, store)

	sel, err := wb.Select(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Blobs) != 2 {
		t.Fatalf("blobs = %+v", sel.Blobs)
	}
	meta, id := wb.Metadata()
	if meta["revision"] != "A.1" || id == "" {
		t.Fatalf("metadata = %v (%s)", meta, id)
	}
	tables := wb.Tables()
	if len(tables) != 1 {
		t.Fatalf("tables = %v", tables)
	}
	grid, ok := wb.Table(tables[0])
	if !ok || len(grid) != 2 || grid[1][0] != "bolt" {
		t.Fatalf("grid = %v", grid)
	}
}

func TestConvertRunsBatchToReview(t *testing.T) {
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1", ProjectID: "p1"})
	store.Script("s1",
		testsupport.StatusStep{Status: session.StatusProcessing, Pending: 4},
		testsupport.StatusStep{Status: session.StatusProcessing, Pending: 1},
		testsupport.StatusStep{Status: session.StatusCompleted},
	)
	wb := newWorkbench(t, store)
	if _, err := wb.Select(context.Background(), "s1"); err != nil {
		t.Fatalf("Select: %v", err)
	}

	conv := prompts.Conversion{Start: prompts.StartBOM, Documents: []string{prompts.DocProduction}}
	res, err := wb.Convert(context.Background(), conv)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Outcome != workflow.OutcomeCompleted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if step, text := wb.Wizard(); step != stage.StepReview || text != "Completed." {
		t.Fatalf("wizard = %v %q", step, text)
	}

	conv.ProjectID = "p1"
	conv.TargetColumns = testsupport.NewConfig(t).Workflow.TargetColumns
	want, err := conv.Tasks()
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(store.Queued) != 1 || !slices.Equal(store.Queued[0], want) {
		t.Fatalf("queued tasks differ: got %d tasks, want %d", len(store.Queued[0]), len(want))
	}
}

func TestConvertSkipsWhileProcessing(t *testing.T) {
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1", Status: session.StatusProcessing})
	wb := newWorkbench(t, store)
	if _, err := wb.Select(context.Background(), "s1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := wb.Convert(context.Background(), prompts.Conversion{}); !errors.Is(err, workflow.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if store.CallCount("QueueTasks") != 0 {
		t.Fatal("queued while processing")
	}
}

func TestExecutionErrorThenIgnoreOrReset(t *testing.T) {
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1"})
	store.Script("s1", testsupport.StatusStep{Status: session.StatusError})
	wb := newWorkbench(t, store)
	if _, err := wb.Select(context.Background(), "s1"); err != nil {
		t.Fatalf("Select: %v", err)
	}

	res, err := wb.GenerateMetadata(context.Background())
	if err != nil {
		t.Fatalf("GenerateMetadata: %v", err)
	}
	if !res.NeedsDecision() {
		t.Fatalf("result = %+v", res)
	}
	if step, text := wb.Wizard(); step != stage.StepDeliverables || text != "Execution Error." {
		t.Fatalf("wizard = %v %q", step, text)
	}
	if got := len(store.Queued[0]); got != 5 {
		t.Fatalf("metadata batch has %d tasks, want 5", got)
	}

	wb.Ignore()
	if step, _ := wb.Wizard(); step != stage.StepReview {
		t.Fatalf("after ignore wizard = %v", step)
	}
	wb.ResetWizard()
	if step, _ := wb.Wizard(); step != stage.StepStart {
		t.Fatalf("after reset wizard = %v", step)
	}
}

func TestSubmissionFailureReturnsToDeliverables(t *testing.T) {
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1"})
	store.QueueErr = errors.New("503")
	wb := newWorkbench(t, store)
	if _, err := wb.Select(context.Background(), "s1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := wb.RunTasks(context.Background(), []string{"do it"}); !errors.Is(err, workflow.ErrSubmit) {
		t.Fatalf("expected ErrSubmit, got %v", err)
	}
	if step, _ := wb.Wizard(); step != stage.StepDeliverables {
		t.Fatalf("wizard = %v", step)
	}
	if wb.Busy() {
		t.Fatal("still busy")
	}
}

func TestCompleteStageLocksEdits(t *testing.T) {
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1", Content: `{"workflow_stage":"verification"}`})
	wb := newWorkbench(t, store)
	if _, err := wb.Select(context.Background(), "s1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := wb.Transition(context.Background(), stage.Complete); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	files := []session.Upload{{FileName: "late.csv", Data: []byte("a")}}
	if _, err := wb.Upload(context.Background(), files); !errors.Is(err, workbench.ErrLocked) {
		t.Fatalf("Upload: expected ErrLocked, got %v", err)
	}
	if _, err := wb.RunTasks(context.Background(), []string{"x"}); !errors.Is(err, workbench.ErrLocked) {
		t.Fatalf("RunTasks: expected ErrLocked, got %v", err)
	}
	if _, err := wb.AddNote(context.Background(), "n", "b"); !errors.Is(err, workbench.ErrLocked) {
		t.Fatalf("AddNote: expected ErrLocked, got %v", err)
	}
	if store.CallCount("UploadBlob") != 0 {
		t.Fatal("uploaded to a locked session")
	}
}

func TestUploadDetectsContentType(t *testing.T) {
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1"})
	wb := newWorkbench(t, store)
	if _, err := wb.Select(context.Background(), "s1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	res, err := wb.Upload(context.Background(), []session.Upload{{FileName: "bom.csv", Data: []byte("a,b\n")}})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(res.Uploaded) != 1 || res.Uploaded[0].ContentType != "text/csv" {
		t.Fatalf("uploaded = %+v", res.Uploaded)
	}
}

func TestSyncChatsThenReloads(t *testing.T) {
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1"})
	store.ChatReply = "metadata updated"
	wb := newWorkbench(t, store)
	if _, err := wb.Select(context.Background(), "s1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	store.AddBlob("s1", session.MetadataFileName, "application/json", []byte(`{"status":"DRAFT"}`))

	reply, err := wb.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if reply.Content != "metadata updated" {
		t.Fatalf("reply = %+v", reply)
	}
	if meta, _ := wb.Metadata(); meta["status"] != "DRAFT" {
		t.Fatalf("metadata not reloaded: %v", meta)
	}
}

func TestSelectAnotherSessionDropsPreviousState(t *testing.T) {
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1", Content: `{"comments":{"b1":["old"]}}`})
	store.AddSession(session.Session{ID: "s2"})
	store.AddBlob("s1", "a.csv", "text/csv", []byte("x"))
	wb := newWorkbench(t, store)

	if _, err := wb.Select(context.Background(), "s1"); err != nil {
		t.Fatalf("Select s1: %v", err)
	}
	if _, err := wb.Select(context.Background(), "s2"); err != nil {
		t.Fatalf("Select s2: %v", err)
	}
	if blobs := wb.Blobs(); len(blobs) != 0 {
		t.Fatalf("blobs leaked: %+v", blobs)
	}
	if tables := wb.Tables(); len(tables) != 0 {
		t.Fatalf("tables leaked: %v", tables)
	}
	comments, err := wb.Comments()
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("comments leaked: %v", comments)
	}
}

func TestHistoryListsJournaledBatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	j := testsupport.MustOpenJournal(t, cfg)
	store := testsupport.NewFakeStore()
	store.AddSession(session.Session{ID: "s1"})
	store.Script("s1", testsupport.StatusStep{Status: session.StatusCompleted})
	wb := newWorkbench(t, store, workbench.WithJournal(j))
	if _, err := wb.Select(context.Background(), "s1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := wb.RunTasks(context.Background(), []string{"a", " ", "b"}); err != nil {
		t.Fatalf("RunTasks: %v", err)
	}

	batches, err := wb.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(batches) != 1 || batches[0].Kind != "custom" || batches[0].TotalTasks != 2 {
		t.Fatalf("history = %+v", batches)
	}
}
