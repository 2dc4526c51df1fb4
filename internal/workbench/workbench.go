package workbench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"techxfer/internal/blobcache"
	"techxfer/internal/config"
	"techxfer/internal/journal"
	"techxfer/internal/logging"
	"techxfer/internal/notifications"
	"techxfer/internal/overlay"
	"techxfer/internal/projection"
	"techxfer/internal/session"
	"techxfer/internal/stage"
	"techxfer/internal/versioning"
	"techxfer/internal/workflow"
)

// ErrLocked is returned for edits to a session whose stage is complete.
var ErrLocked = errors.New("session is locked in the complete stage")

// Option customizes a Workbench.
type Option func(*options)

type options struct {
	journal   *journal.Store
	notifier  notifications.Service
	observers []workflow.Observer
	sleeper   workflow.Sleeper
}

// WithJournal records every batch in j.
func WithJournal(j *journal.Store) Option {
	return func(o *options) { o.journal = j }
}

// WithNotifier publishes finished batches through svc.
func WithNotifier(svc notifications.Service) Option {
	return func(o *options) { o.notifier = svc }
}

// WithObserver receives poll progress for the active session.
func WithObserver(obs workflow.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithSleeper replaces the wait between poll ticks.
func WithSleeper(s workflow.Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

// Workbench binds the workflow components for one client instance. It holds
// at most one active session at a time.
type Workbench struct {
	cfg     *config.Config
	store   session.Store
	journal *journal.Store
	logger  *slog.Logger

	tracker  *session.Tracker
	holder   *session.Holder
	writer   *session.ContentWriter
	blobs    *blobcache.Cache
	proj     *projection.Projection
	machine  *stage.Machine
	overlay  *overlay.Overlay
	versions *versioning.Manager
	poller   *workflow.Poller

	mu     sync.Mutex
	wizard stage.WizardStep
	status string
}

// New wires a workbench against store.
func New(cfg *config.Config, store session.Store, logger *slog.Logger, opts ...Option) *Workbench {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	w := &Workbench{
		cfg:     cfg,
		store:   store,
		journal: o.journal,
		logger:  logging.NewComponentLogger(logger, "workbench"),
		tracker: session.NewTracker(),
		wizard:  stage.StepStart,
	}
	w.holder = session.NewHolder(w.tracker)
	w.writer = session.NewContentWriter(store, w.holder, logger)
	w.blobs = blobcache.New(store, w.tracker, logger)
	w.proj = projection.New(store, w.tracker, cfg.TextTTL(), logger)
	w.blobs.OnRefresh(w.proj.Update)
	w.machine = stage.NewMachine(w.holder, w.writer, logger)
	w.overlay = overlay.New(w.holder, w.writer, store, logger)
	w.versions = versioning.NewManager(store, w.blobs, w.proj, w.writer, logger)

	pollerOpts := []workflow.Option{workflow.WithObserver(wizardObserver{w})}
	if o.journal != nil {
		pollerOpts = append(pollerOpts, workflow.WithRecorder(o.journal))
	}
	if o.notifier != nil {
		pollerOpts = append(pollerOpts, workflow.WithObserver(notifications.NewBatchNotifier(o.notifier, w.title, logger)))
	}
	for _, obs := range o.observers {
		pollerOpts = append(pollerOpts, workflow.WithObserver(obs))
	}
	if o.sleeper != nil {
		pollerOpts = append(pollerOpts, workflow.WithSleeper(o.sleeper))
	}
	w.poller = workflow.NewPoller(cfg, store, w.tracker, w.holder, w.blobs, logger, pollerOpts...)
	return w
}

// Selection is the state derived when a session is selected.
type Selection struct {
	Session session.Session
	Blobs   []session.Blob
	Stage   stage.Stage
	Wizard  stage.WizardStep
	// ResumePolling is set when the server is still running a batch.
	ResumePolling bool
}

// Select makes id the active session, loads it with its blobs and derives the
// initial stage and wizard step. Work still running for a previous selection
// is ignored from here on.
func (w *Workbench) Select(ctx context.Context, id string) (Selection, error) {
	ticket := w.tracker.Switch(id)
	w.holder.Reset()
	w.blobs.Reset()
	w.proj.Reset()
	w.setWizard(stage.StepStart, "")

	s, err := w.store.GetSession(ctx, id)
	if err != nil {
		return Selection{}, fmt.Errorf("load session: %w", err)
	}
	if !w.holder.Load(ticket, s) {
		return Selection{}, session.ErrStale
	}
	blobs, err := w.blobs.Refresh(ctx, ticket)
	if err != nil {
		return Selection{}, fmt.Errorf("load blobs: %w", err)
	}

	initial := stage.Infer(s)
	w.setWizard(initial.Wizard, "")
	w.logger.Debug("session selected",
		logging.String(logging.FieldSessionID, id),
		logging.String(logging.FieldStage, string(initial.Stage)),
		logging.String(logging.FieldStatus, string(s.Status)),
		logging.String("wizard", initial.Wizard.String()),
	)
	return Selection{
		Session:       s,
		Blobs:         blobs,
		Stage:         initial.Stage,
		Wizard:        initial.Wizard,
		ResumePolling: initial.ResumePolling,
	}, nil
}

// Ticket returns the active selection or session.ErrNoActiveSession.
func (w *Workbench) Ticket() (session.Ticket, error) {
	return w.tracker.Active()
}

// Session returns the local copy of the active session.
func (w *Workbench) Session() (session.Session, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return session.Session{}, err
	}
	s, ok := w.holder.Snapshot(ticket)
	if !ok {
		return session.Session{}, session.ErrStale
	}
	return s, nil
}

// Reload fetches the active session record and its blob list again.
func (w *Workbench) Reload(ctx context.Context) (session.Session, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return session.Session{}, err
	}
	s, err := w.store.GetSession(ctx, ticket.SessionID)
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	if !w.holder.Load(ticket, s) {
		return session.Session{}, session.ErrStale
	}
	if _, err := w.blobs.Refresh(ctx, ticket); err != nil {
		return session.Session{}, fmt.Errorf("load blobs: %w", err)
	}
	return s, nil
}

// Blobs returns the cached blob list of the active session.
func (w *Workbench) Blobs() []session.Blob {
	return w.blobs.Blobs(w.tracker.Current())
}

// Wizard returns the ingestion wizard step and the last status text.
func (w *Workbench) Wizard() (stage.WizardStep, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wizard, w.status
}

// Ignore accepts the results of a failed batch and moves to review.
func (w *Workbench) Ignore() {
	w.setWizard(stage.StepReview, "")
}

// ResetWizard returns to the first wizard step. Uploaded files stay.
func (w *Workbench) ResetWizard() {
	w.setWizard(stage.StepStart, "")
}

// Stage returns the persisted stage of the active session.
func (w *Workbench) Stage() (stage.Stage, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return "", err
	}
	return w.machine.Current(ticket)
}

// Transition moves the active session to next.
func (w *Workbench) Transition(ctx context.Context, next stage.Stage) (session.Session, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return session.Session{}, err
	}
	return w.machine.Transition(ctx, ticket, next)
}

// Journal returns the batch journal, or nil when it is disabled.
func (w *Workbench) Journal() *journal.Store { return w.journal }

func (w *Workbench) setWizard(step stage.WizardStep, status string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.wizard = step
	w.status = status
}

// editable returns the active ticket unless the session is locked.
func (w *Workbench) editable() (session.Ticket, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return session.Ticket{}, err
	}
	current, err := w.machine.Current(ticket)
	if err != nil {
		return session.Ticket{}, err
	}
	if current.Locked() {
		return session.Ticket{}, ErrLocked
	}
	return ticket, nil
}

func (w *Workbench) title(sessionID string) string {
	s, err := w.Session()
	if err != nil || s.ID != sessionID {
		return ""
	}
	return s.Title
}

// wizardObserver mirrors poll progress into the workbench wizard state.
type wizardObserver struct{ w *Workbench }

func (o wizardObserver) BatchProgress(_ context.Context, p workflow.Progress) {
	o.w.setWizard(stage.StepProcessing, p.Text)
}

func (o wizardObserver) BatchFinished(_ context.Context, r workflow.Result) {
	if r.Wizard == 0 {
		return
	}
	o.w.setWizard(r.Wizard, r.Text)
}
