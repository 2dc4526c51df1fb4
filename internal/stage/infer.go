package stage

import (
	"techxfer/internal/content"
	"techxfer/internal/session"
)

// Initial is the client state derived once when a session is selected.
type Initial struct {
	Stage  Stage
	Wizard WizardStep
	// ResumePolling is set when the server is still working on a batch.
	ResumePolling bool
}

// Infer derives the initial stage and wizard step for s. The stage is taken
// from content only. The wizard uses status and lifecycle presence so that
// sessions created before stages were recorded skip straight to review.
func Infer(s session.Session) Initial {
	out := Initial{Stage: Persisted(s.Content), Wizard: StepStart}

	lc, _ := content.ParseLenient(s.Content).Lifecycle()
	switch {
	case s.Status == session.StatusProcessing:
		out.Wizard = StepProcessing
		out.ResumePolling = true
	case s.Status == session.StatusCompleted || !lc.Empty():
		out.Wizard = StepReview
	}
	return out
}

// AfterTerminal maps a terminal batch status to the wizard step to show.
func AfterTerminal(status session.Status) WizardStep {
	switch status {
	case session.StatusCompleted:
		return StepReview
	case session.StatusCancelled, session.StatusError:
		return StepDeliverables
	default:
		return StepProcessing
	}
}
