package workflow

import (
	"errors"
	"fmt"
	"time"

	"techxfer/internal/session"
	"techxfer/internal/stage"
)

var (
	// ErrBusy is returned when a batch is already in flight on this poller.
	ErrBusy = errors.New("a batch is already in progress")
	// ErrSubmit wraps failures of the request that starts a batch.
	ErrSubmit = errors.New("batch submission failed")
)

// Outcome is how a poll loop ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
	// OutcomeCeiling means the attempt limit was reached before a terminal
	// status.
	OutcomeCeiling Outcome = "ceiling"
	// OutcomeAbandoned means the user selected another session.
	OutcomeAbandoned Outcome = "abandoned"
	// OutcomeInterrupted means the caller's context ended.
	OutcomeInterrupted Outcome = "interrupted"
)

// Kind labels what started a poll loop.
type Kind string

const (
	KindConvert  Kind = "convert"
	KindMetadata Kind = "metadata"
	KindCustom   Kind = "custom"
	KindRetry    Kind = "retry"
	KindResume   Kind = "resume"
)

// Progress is one poll observation.
type Progress struct {
	BatchID   string
	SessionID string
	Attempt   int
	Status    session.Status
	Total     int
	Pending   int
	Completed int
	Text      string
}

// Result summarizes a finished poll loop. Wizard is zero when the loop ended
// without a decision for the session, as when it was abandoned or interrupted.
type Result struct {
	BatchID   string
	SessionID string
	Kind      Kind
	Outcome   Outcome
	Status    session.Status
	Total     int
	Attempts  int
	Failures  int
	Text      string
	Wizard    stage.WizardStep
	Elapsed   time.Duration
}

// Terminal reports whether the server reached a terminal status.
func (r Result) Terminal() bool {
	switch r.Outcome {
	case OutcomeCompleted, OutcomeCancelled, OutcomeError:
		return true
	}
	return false
}

// NeedsDecision reports whether the user must choose retry, ignore or reset.
func (r Result) NeedsDecision() bool { return r.Outcome == OutcomeError }

const (
	textCompleted = "Completed."
	textCancelled = "Process Cancelled."
	textError     = "Execution Error."
)

// ProgressText renders the status line for a non-terminal poll. With a known
// total it reports completed tasks, otherwise the remaining count.
func ProgressText(total, pending int) string {
	if total > 0 {
		done := max(total-pending, 0)
		return fmt.Sprintf("Processing: %d/%d tasks completed...", done, total)
	}
	return fmt.Sprintf("Processing... %d tasks remaining", pending)
}

func terminalOutcome(status session.Status) (Outcome, string, bool) {
	switch status {
	case session.StatusCompleted:
		return OutcomeCompleted, textCompleted, true
	case session.StatusCancelled:
		return OutcomeCancelled, textCancelled, true
	case session.StatusError:
		return OutcomeError, textError, true
	}
	return "", "", false
}
