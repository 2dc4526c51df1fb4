package stage

import (
	"context"
	"fmt"
	"log/slog"

	"techxfer/internal/content"
	"techxfer/internal/logging"
	"techxfer/internal/session"
)

// Machine persists stage transitions for the active session.
type Machine struct {
	holder *session.Holder
	writer *session.ContentWriter
	logger *slog.Logger
}

// NewMachine binds a machine to the session holder and content writer.
func NewMachine(holder *session.Holder, writer *session.ContentWriter, logger *slog.Logger) *Machine {
	return &Machine{
		holder: holder,
		writer: writer,
		logger: logging.NewComponentLogger(logger, "stage"),
	}
}

// Current returns the persisted stage of ticket's session.
func (m *Machine) Current(ticket session.Ticket) (Stage, error) {
	snap, ok := m.holder.Snapshot(ticket)
	if !ok {
		return "", session.ErrStale
	}
	return Persisted(snap.Content), nil
}

// Transition validates and persists from the current stage to next. The local
// session content is replaced with the written payload once the store accepts
// it, without waiting for a refetch.
func (m *Machine) Transition(ctx context.Context, ticket session.Ticket, next Stage) (session.Session, error) {
	from, err := m.Current(ticket)
	if err != nil {
		return session.Session{}, err
	}
	if err := checkTransition(from, next); err != nil {
		return session.Session{}, err
	}

	if _, err := m.writer.Patch(ctx, ticket, session.ApplyOnSuccess, content.SetStage(string(next))); err != nil {
		return session.Session{}, fmt.Errorf("transition to %s: %w", next, err)
	}
	m.logger.Info("stage changed",
		logging.String(logging.FieldSessionID, ticket.SessionID),
		logging.String("from", string(from)),
		logging.String(logging.FieldStage, string(next)),
		logging.String(logging.FieldEventType, "stage_transition"),
	)

	snap, ok := m.holder.Snapshot(ticket)
	if !ok {
		return session.Session{}, session.ErrStale
	}
	return snap, nil
}

// Persisted reads workflow_stage from raw content. Missing, unknown or
// unparseable values mean ingestion.
func Persisted(raw string) Stage {
	recorded, ok := content.ParseLenient(raw).Stage()
	if !ok {
		return Ingestion
	}
	if s, known := Parse(recorded); known {
		return s
	}
	return Ingestion
}
