package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"techxfer/internal/logging"
	"techxfer/internal/workflow"
)

// TitleFunc resolves a session id to a human title.
type TitleFunc func(sessionID string) string

// BatchNotifier publishes finished batches. Progress ticks are not published.
type BatchNotifier struct {
	svc    Service
	title  TitleFunc
	logger *slog.Logger
}

// NewBatchNotifier wraps svc as a workflow observer.
func NewBatchNotifier(svc Service, title TitleFunc, logger *slog.Logger) *BatchNotifier {
	return &BatchNotifier{svc: svc, title: title, logger: logging.NewComponentLogger(logger, "notifications")}
}

func (b *BatchNotifier) BatchProgress(context.Context, workflow.Progress) {}

func (b *BatchNotifier) BatchFinished(ctx context.Context, r workflow.Result) {
	title := r.SessionID
	if b.title != nil {
		if t := b.title(r.SessionID); t != "" {
			title = t
		}
	}

	var err error
	switch r.Outcome {
	case workflow.OutcomeCompleted:
		err = b.svc.NotifyBatchCompleted(ctx, title, r.Total, r.Elapsed)
	case workflow.OutcomeCancelled:
		err = b.svc.NotifyBatchStopped(ctx, title, "cancelled")
	case workflow.OutcomeCeiling:
		err = b.svc.NotifyBatchStopped(ctx, title, fmt.Sprintf("still processing after %d polls", r.Attempts))
	case workflow.OutcomeError:
		err = b.svc.NotifyError(ctx, errors.New(r.Text), fmt.Sprintf("%s batch on %s", r.Kind, title))
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(b.logger, "batch notification failed", "notification_failed",
			logging.String(logging.FieldSessionID, r.SessionID),
			logging.String(logging.FieldBatchID, r.BatchID),
			logging.String(logging.FieldImpact, "no ntfy alert for this batch"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.Error(err),
		)
	}
}

var _ workflow.Observer = (*BatchNotifier)(nil)
