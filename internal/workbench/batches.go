package workbench

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"techxfer/internal/prompts"
	"techxfer/internal/session"
	"techxfer/internal/stage"
	"techxfer/internal/workflow"
)

// Convert queues the conversion batch for the active session and polls it to
// the end. Project id and target columns default from the session and config.
// Nothing is queued while the server still reports the session as processing.
func (w *Workbench) Convert(ctx context.Context, conv prompts.Conversion) (workflow.Result, error) {
	ticket, err := w.editable()
	if err != nil {
		return workflow.Result{}, err
	}
	s, err := w.Session()
	if err != nil {
		return workflow.Result{}, err
	}
	if s.Status == session.StatusProcessing {
		return workflow.Result{}, workflow.ErrBusy
	}
	if conv.ProjectID == "" {
		conv.ProjectID = s.ProjectID
	}
	if len(conv.TargetColumns) == 0 {
		conv.TargetColumns = slices.Clone(w.cfg.Workflow.TargetColumns)
	}
	tasks, err := conv.Tasks()
	if err != nil {
		return workflow.Result{}, fmt.Errorf("build conversion tasks: %w", err)
	}
	return w.run(ctx, ticket, workflow.KindConvert, tasks)
}

// GenerateMetadata queues the fixed metadata generation batch.
func (w *Workbench) GenerateMetadata(ctx context.Context) (workflow.Result, error) {
	ticket, err := w.editable()
	if err != nil {
		return workflow.Result{}, err
	}
	return w.run(ctx, ticket, workflow.KindMetadata, prompts.MetadataTasks())
}

// RunTasks queues caller-supplied task descriptions. Blank entries are dropped.
func (w *Workbench) RunTasks(ctx context.Context, tasks []string) (workflow.Result, error) {
	ticket, err := w.editable()
	if err != nil {
		return workflow.Result{}, err
	}
	cleaned := make([]string, 0, len(tasks))
	for _, task := range tasks {
		if strings.TrimSpace(task) != "" {
			cleaned = append(cleaned, task)
		}
	}
	if len(cleaned) == 0 {
		return workflow.Result{}, errors.New("no tasks to run")
	}
	return w.run(ctx, ticket, workflow.KindCustom, cleaned)
}

// Resume polls a batch that was already running when the session was selected.
func (w *Workbench) Resume(ctx context.Context) (workflow.Result, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return workflow.Result{}, err
	}
	w.setWizard(stage.StepProcessing, "")
	return w.poller.Resume(ctx, ticket)
}

// Retry re-runs the session's tasks after an execution error.
func (w *Workbench) Retry(ctx context.Context) (workflow.Result, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return workflow.Result{}, err
	}
	w.setWizard(stage.StepProcessing, "")
	res, err := w.poller.Retry(ctx, ticket)
	if err != nil && !errors.Is(err, workflow.ErrBusy) {
		w.setWizard(stage.StepDeliverables, "")
	}
	return res, err
}

// Cancel requests cancellation of the running batch.
func (w *Workbench) Cancel(ctx context.Context) error {
	ticket, err := w.tracker.Active()
	if err != nil {
		return err
	}
	return w.poller.Cancel(ctx, ticket)
}

// Busy reports whether a batch is being polled.
func (w *Workbench) Busy() bool { return w.poller.Running() }

func (w *Workbench) run(ctx context.Context, ticket session.Ticket, kind workflow.Kind, tasks []string) (workflow.Result, error) {
	if w.poller.Running() {
		return workflow.Result{}, workflow.ErrBusy
	}
	w.setWizard(stage.StepProcessing, "")
	res, err := w.poller.RunBatch(ctx, ticket, kind, tasks)
	if err != nil && !errors.Is(err, workflow.ErrBusy) {
		w.setWizard(stage.StepDeliverables, "")
	}
	return res, err
}
