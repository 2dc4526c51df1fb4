package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"techxfer/internal/content"
	"techxfer/internal/logging"
	"techxfer/internal/session"
)

// ErrEmptyComment is returned when a comment has no text.
var ErrEmptyComment = errors.New("comment text is empty")

// Chatter sends one-shot messages to the session agent.
type Chatter interface {
	Chat(ctx context.Context, sessionID, message string) (session.ChatReply, error)
}

// Overlay reads and writes comments and lifecycle for the active session.
type Overlay struct {
	holder *session.Holder
	writer *session.ContentWriter
	chat   Chatter
	logger *slog.Logger
}

// New builds an overlay.
func New(holder *session.Holder, writer *session.ContentWriter, chat Chatter, logger *slog.Logger) *Overlay {
	return &Overlay{
		holder: holder,
		writer: writer,
		chat:   chat,
		logger: logging.NewComponentLogger(logger, "overlay"),
	}
}

func (o *Overlay) document(ticket session.Ticket) (content.Document, error) {
	snap, ok := o.holder.Snapshot(ticket)
	if !ok {
		return nil, session.ErrStale
	}
	return content.ParseLenient(snap.Content), nil
}

// Comments returns the comment map of ticket's session.
func (o *Overlay) Comments(ticket session.Ticket) (content.Comments, error) {
	doc, err := o.document(ticket)
	if err != nil {
		return nil, err
	}
	return doc.Comments(), nil
}

// AddComment appends text to blobID's comments.
func (o *Overlay) AddComment(ctx context.Context, ticket session.Ticket, blobID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyComment
	}
	if strings.TrimSpace(blobID) == "" {
		return errors.New("blob id is required")
	}
	if _, err := o.writer.Patch(ctx, ticket, session.ApplyOptimistic, content.AppendComment(blobID, text)); err != nil {
		return fmt.Errorf("save comment: %w", err)
	}
	o.logger.Debug("comment added",
		logging.String(logging.FieldSessionID, ticket.SessionID),
		logging.String(logging.FieldBlobID, blobID),
	)
	return nil
}

// Lifecycle returns the lifecycle of ticket's session. Missing or malformed
// values read as empty.
func (o *Overlay) Lifecycle(ticket session.Ticket) (content.Lifecycle, error) {
	doc, err := o.document(ticket)
	if err != nil {
		return content.Lifecycle{}, err
	}
	lc, _ := doc.Lifecycle()
	return lc.Clamp(), nil
}

// UpdateLifecycle replaces the lifecycle wholesale. currentStep is clamped.
func (o *Overlay) UpdateLifecycle(ctx context.Context, ticket session.Ticket, steps []string, currentStep int) (content.Lifecycle, error) {
	lc := content.Lifecycle{Steps: steps, CurrentStep: currentStep}.Clamp()
	if _, err := o.writer.Patch(ctx, ticket, session.ApplyOptimistic, content.SetLifecycle(lc)); err != nil {
		return content.Lifecycle{}, fmt.Errorf("save lifecycle: %w", err)
	}
	return lc, nil
}

// Advance moves the lifecycle cursor forward one step.
func (o *Overlay) Advance(ctx context.Context, ticket session.Ticket) (content.Lifecycle, error) {
	return o.step(ctx, ticket, 1)
}

// Back moves the lifecycle cursor back one step.
func (o *Overlay) Back(ctx context.Context, ticket session.Ticket) (content.Lifecycle, error) {
	return o.step(ctx, ticket, -1)
}

// step writes only when the clamped cursor actually moves.
func (o *Overlay) step(ctx context.Context, ticket session.Ticket, delta int) (content.Lifecycle, error) {
	lc, err := o.Lifecycle(ticket)
	if err != nil {
		return content.Lifecycle{}, err
	}
	moved := lc.Move(delta)
	if lc.Empty() || moved.CurrentStep == lc.CurrentStep {
		return lc, nil
	}
	if _, err := o.writer.Patch(ctx, ticket, session.ApplyOptimistic, content.StepLifecycle(delta)); err != nil {
		return lc, fmt.Errorf("save lifecycle: %w", err)
	}
	return o.Lifecycle(ticket)
}
