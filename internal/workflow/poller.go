package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"techxfer/internal/blobcache"
	"techxfer/internal/config"
	"techxfer/internal/journal"
	"techxfer/internal/logging"
	"techxfer/internal/session"
	"techxfer/internal/stage"
)

// Observer receives poll updates for the session a batch was started for.
// Calls are made only while that session is still active.
type Observer interface {
	BatchProgress(ctx context.Context, p Progress)
	BatchFinished(ctx context.Context, r Result)
}

// Recorder persists batch history. *journal.Store satisfies it.
type Recorder interface {
	Start(ctx context.Context, b journal.Batch) error
	Progress(ctx context.Context, id string, attempts int, text string) error
	Finish(ctx context.Context, id string, outcome journal.Outcome, finalStatus, message string) error
}

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option customizes a Poller.
type Option func(*Poller)

// WithRecorder journals every batch through r.
func WithRecorder(r Recorder) Option {
	return func(p *Poller) { p.recorder = r }
}

// WithObserver adds o to the observers notified on each poll.
func WithObserver(o Observer) Option {
	return func(p *Poller) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// WithSleeper replaces the wait between poll ticks.
func WithSleeper(s Sleeper) Option {
	return func(p *Poller) {
		if s != nil {
			p.sleep = s
		}
	}
}

// Poller runs at most one batch at a time.
type Poller struct {
	store   session.Store
	tracker *session.Tracker
	holder  *session.Holder
	blobs   *blobcache.Cache
	logger  *slog.Logger

	interval    time.Duration
	backoff     time.Duration
	maxAttempts int

	recorder  Recorder
	observers []Observer
	sleep     Sleeper
	now       func() time.Time

	running atomic.Bool
}

// NewPoller builds a poller using the timing knobs of cfg.
func NewPoller(cfg *config.Config, store session.Store, tracker *session.Tracker, holder *session.Holder, blobs *blobcache.Cache, logger *slog.Logger, opts ...Option) *Poller {
	p := &Poller{
		store:       store,
		tracker:     tracker,
		holder:      holder,
		blobs:       blobs,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		interval:    cfg.PollInterval(),
		backoff:     cfg.ErrorBackoff(),
		maxAttempts: cfg.Workflow.MaxPollAttempts,
		sleep:       sleepContext,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Running reports whether a batch is in flight.
func (p *Poller) Running() bool { return p.running.Load() }

// RunBatch queues tasks for the session named by ticket and polls until the
// batch ends. A second call while a batch is in flight returns ErrBusy
// without contacting the store.
func (p *Poller) RunBatch(ctx context.Context, ticket session.Ticket, kind Kind, tasks []string) (Result, error) {
	if !p.tracker.Fresh(ticket) {
		return Result{}, session.ErrStale
	}
	if len(tasks) == 0 {
		return Result{}, errors.New("batch has no tasks")
	}
	if !p.running.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer p.running.Store(false)

	r := p.begin(ctx, ticket, kind, len(tasks), tasks)
	if err := p.store.QueueTasks(ctx, ticket.SessionID, tasks); err != nil {
		p.abort(ctx, r, err)
		return Result{}, fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	p.holder.Apply(ticket, func(s *session.Session) {
		s.Status = session.StatusProcessing
		s.PendingTasks = len(tasks)
	})
	p.logger.Info("batch queued",
		logging.String(logging.FieldSessionID, ticket.SessionID),
		logging.String(logging.FieldBatchID, r.id),
		logging.String("kind", string(kind)),
		logging.Int("tasks", len(tasks)),
		logging.String(logging.FieldEventType, "batch_queued"),
	)
	return p.poll(ctx, r), nil
}

// Resume polls a session the server already reports as processing. The
// original batch size is unknown, so progress is reported as remaining tasks.
func (p *Poller) Resume(ctx context.Context, ticket session.Ticket) (Result, error) {
	if !p.tracker.Fresh(ticket) {
		return Result{}, session.ErrStale
	}
	if !p.running.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer p.running.Store(false)

	r := p.begin(ctx, ticket, KindResume, 0, nil)
	p.logger.Info("resuming batch poll",
		logging.String(logging.FieldSessionID, ticket.SessionID),
		logging.String(logging.FieldBatchID, r.id),
		logging.String(logging.FieldEventType, "batch_resumed"),
	)
	return p.poll(ctx, r), nil
}

// Retry asks the store to re-run the session's tasks and polls from scratch.
func (p *Poller) Retry(ctx context.Context, ticket session.Ticket) (Result, error) {
	if !p.tracker.Fresh(ticket) {
		return Result{}, session.ErrStale
	}
	if !p.running.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer p.running.Store(false)

	r := p.begin(ctx, ticket, KindRetry, 0, nil)
	if err := p.store.RetrySession(ctx, ticket.SessionID); err != nil {
		p.abort(ctx, r, err)
		return Result{}, fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	p.holder.Apply(ticket, func(s *session.Session) { s.Status = session.StatusProcessing })
	p.logger.Info("batch retry requested",
		logging.String(logging.FieldSessionID, ticket.SessionID),
		logging.String(logging.FieldBatchID, r.id),
		logging.String(logging.FieldEventType, "batch_retry"),
	)
	return p.poll(ctx, r), nil
}

// Cancel asks the store to stop the session's batch. It does not wait for the
// poll loop; the loop ends when it next observes the cancelled status.
func (p *Poller) Cancel(ctx context.Context, ticket session.Ticket) error {
	if !ticket.Valid() {
		return session.ErrNoActiveSession
	}
	if err := p.store.CancelSession(ctx, ticket.SessionID); err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	p.logger.Info("cancel requested",
		logging.String(logging.FieldSessionID, ticket.SessionID),
		logging.String(logging.FieldEventType, "batch_cancel_requested"),
	)
	return nil
}

type run struct {
	id      string
	ticket  session.Ticket
	kind    Kind
	total   int
	started time.Time
}

func (p *Poller) begin(ctx context.Context, ticket session.Ticket, kind Kind, total int, tasks []string) *run {
	r := &run{
		id:      uuid.NewString(),
		ticket:  ticket,
		kind:    kind,
		total:   total,
		started: p.now(),
	}
	if p.recorder != nil {
		err := p.recorder.Start(ctx, journal.Batch{
			ID:         r.id,
			SessionID:  ticket.SessionID,
			Kind:       string(kind),
			TotalTasks: total,
			Tasks:      tasks,
		})
		p.journalFailed(r, err)
	}
	return r
}

func (p *Poller) abort(ctx context.Context, r *run, err error) {
	logging.ErrorWithContext(p.logger, "batch submission failed", "batch_submit_failed",
		logging.String(logging.FieldSessionID, r.ticket.SessionID),
		logging.String(logging.FieldBatchID, r.id),
		logging.String(logging.FieldErrorHint, "check the session store is reachable and retry"),
		logging.Error(err),
	)
	if p.recorder != nil {
		ferr := p.recorder.Finish(context.WithoutCancel(ctx), r.id, journal.OutcomeSubmitFailed, "", err.Error())
		p.journalFailed(r, ferr)
	}
}

func (p *Poller) poll(ctx context.Context, r *run) Result {
	res := Result{
		BatchID:   r.id,
		SessionID: r.ticket.SessionID,
		Kind:      r.kind,
		Total:     r.total,
	}
	logger := p.logger.With(
		logging.String(logging.FieldSessionID, r.ticket.SessionID),
		logging.String(logging.FieldBatchID, r.id),
	)

	for {
		if !p.tracker.Fresh(r.ticket) {
			res.Outcome = OutcomeAbandoned
			break
		}
		if res.Attempts >= p.maxAttempts {
			res.Outcome = OutcomeCeiling
			res.Text = "Processing timed out."
			res.Wizard = stage.StepDeliverables
			break
		}
		if ctx.Err() != nil {
			res.Outcome = OutcomeInterrupted
			break
		}

		s, blobs, err := p.fetch(ctx, r.ticket)
		res.Attempts++
		if err != nil {
			if ctx.Err() != nil {
				res.Outcome = OutcomeInterrupted
				break
			}
			res.Failures++
			logging.WarnWithContext(logger, "poll tick failed", "poll_failed",
				logging.Int(logging.FieldAttempt, res.Attempts),
				logging.Duration("backoff", p.backoff),
				logging.String(logging.FieldImpact, "progress display is delayed until the next tick"),
				logging.Error(err),
			)
			if p.sleep(ctx, p.backoff) != nil {
				res.Outcome = OutcomeInterrupted
				break
			}
			continue
		}

		if !p.holder.Load(r.ticket, s) {
			res.Outcome = OutcomeAbandoned
			break
		}
		// Refresh listeners download blob text, so the selection may change
		// while Apply runs.
		if _, ok := p.blobs.Apply(ctx, r.ticket, blobs); !ok || !p.tracker.Fresh(r.ticket) {
			res.Outcome = OutcomeAbandoned
			break
		}
		res.Status = s.Status

		if outcome, text, ok := terminalOutcome(s.Status); ok {
			res.Outcome = outcome
			res.Text = text
			res.Wizard = stage.AfterTerminal(s.Status)
			break
		}

		res.Text = ProgressText(r.total, s.PendingTasks)
		p.progress(ctx, r, logger, Progress{
			BatchID:   r.id,
			SessionID: r.ticket.SessionID,
			Attempt:   res.Attempts,
			Status:    s.Status,
			Total:     r.total,
			Pending:   s.PendingTasks,
			Completed: max(r.total-s.PendingTasks, 0),
			Text:      res.Text,
		})

		if p.sleep(ctx, p.interval) != nil {
			res.Outcome = OutcomeInterrupted
			break
		}
	}

	res.Elapsed = p.now().Sub(r.started)
	p.finish(ctx, r, logger, res)
	return res
}

// fetch loads the session record and its blob list concurrently.
func (p *Poller) fetch(ctx context.Context, ticket session.Ticket) (session.Session, []session.Blob, error) {
	var (
		s     session.Session
		blobs []session.Blob
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s, err = p.store.GetSession(gctx, ticket.SessionID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		blobs, err = p.store.ListBlobs(gctx, ticket.SessionID)
		if err != nil {
			return fmt.Errorf("list blobs: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return session.Session{}, nil, err
	}
	return s, blobs, nil
}

func (p *Poller) progress(ctx context.Context, r *run, logger *slog.Logger, pr Progress) {
	logger.Debug("batch progress",
		logging.Int(logging.FieldAttempt, pr.Attempt),
		logging.String(logging.FieldStatus, string(pr.Status)),
		logging.Int("pending", pr.Pending),
	)
	if p.recorder != nil {
		p.journalFailed(r, p.recorder.Progress(ctx, r.id, pr.Attempt, pr.Text))
	}
	if !p.tracker.Fresh(r.ticket) {
		return
	}
	for _, o := range p.observers {
		o.BatchProgress(ctx, pr)
	}
}

func (p *Poller) finish(ctx context.Context, r *run, logger *slog.Logger, res Result) {
	attrs := []logging.Attr{
		logging.String("outcome", string(res.Outcome)),
		logging.String(logging.FieldStatus, string(res.Status)),
		logging.Int("attempts", res.Attempts),
		logging.Int("failures", res.Failures),
		logging.Duration("elapsed", res.Elapsed),
	}
	switch res.Outcome {
	case OutcomeError:
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "retry the batch, ignore the error or reset the session"))
		logging.ErrorWithContext(logger, "batch ended with execution error", "batch_failed", attrs...)
	case OutcomeCeiling:
		attrs = append(attrs,
			logging.String(logging.FieldImpact, "the batch may still be running on the server"),
			logging.String(logging.FieldErrorHint, "watch the session again to resume polling"),
		)
		logging.WarnWithContext(logger, "batch poll ceiling reached", "batch_ceiling", attrs...)
	default:
		attrs = append(attrs, logging.String(logging.FieldEventType, "batch_finished"))
		logger.Info("batch finished", logging.Args(attrs...)...)
	}

	if p.recorder != nil {
		message := ""
		if res.Outcome == OutcomeError || res.Outcome == OutcomeCeiling {
			message = res.Text
		}
		err := p.recorder.Finish(context.WithoutCancel(ctx), r.id, journal.Outcome(res.Outcome), string(res.Status), message)
		p.journalFailed(r, err)
	}
	if res.Outcome == OutcomeAbandoned || !p.tracker.Fresh(r.ticket) {
		return
	}
	for _, o := range p.observers {
		o.BatchFinished(ctx, res)
	}
}

func (p *Poller) journalFailed(r *run, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(p.logger, "batch journal write failed", "journal_write_failed",
		logging.String(logging.FieldSessionID, r.ticket.SessionID),
		logging.String(logging.FieldBatchID, r.id),
		logging.String(logging.FieldImpact, "batch history is incomplete"),
		logging.Error(err),
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
