package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"techxfer/internal/content"
	"techxfer/internal/logging"
)

// WriteMode selects when the local copy observes a content write.
type WriteMode int

const (
	// ApplyOnSuccess updates the local copy once the store accepts the write.
	ApplyOnSuccess WriteMode = iota
	// ApplyOptimistic updates the local copy before the store call and again
	// on success. A failed write is rolled back if nothing replaced it since.
	ApplyOptimistic
)

// ContentWriter persists content patches for the active session.
type ContentWriter struct {
	store  Store
	holder *Holder
	logger *slog.Logger
}

// NewContentWriter builds a writer over store and holder.
func NewContentWriter(store Store, holder *Holder, logger *slog.Logger) *ContentWriter {
	return &ContentWriter{
		store:  store,
		holder: holder,
		logger: logging.NewComponentLogger(logger, "content"),
	}
}

// Patch merges patches into the latest known content of ticket's session,
// persists the result and applies it locally. It returns the serialized
// payload that was written. Patches that change nothing skip the write and
// return the current content.
func (w *ContentWriter) Patch(ctx context.Context, ticket Ticket, mode WriteMode, patches ...content.Patch) (string, error) {
	current, ok := w.holder.Snapshot(ticket)
	if !ok {
		return "", ErrStale
	}
	if _, err := content.Parse(current.Content); err != nil {
		logging.WarnWithContext(w.logger, "session content unreadable; starting from empty document", "content_parse_failed",
			logging.String(logging.FieldSessionID, ticket.SessionID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "agent-authored keys in the corrupt document are dropped"),
		)
	}

	payload, changed, err := content.MergeKeys(current.Content, patches...)
	if err != nil {
		return "", fmt.Errorf("merge content: %w", err)
	}
	if len(changed) == 0 {
		return current.Content, nil
	}

	previous := current.Content
	if mode == ApplyOptimistic {
		w.holder.Apply(ticket, func(s *Session) { s.Content = payload })
	}

	if _, err := w.store.UpdateContent(ctx, ticket.SessionID, payload); err != nil {
		if mode == ApplyOptimistic {
			w.holder.Apply(ticket, func(s *Session) {
				if s.Content == payload {
					s.Content = previous
				}
			})
		}
		return "", fmt.Errorf("persist content: %w", err)
	}

	if !w.holder.Apply(ticket, func(s *Session) { s.Content = payload }) {
		w.logger.Debug("content persisted after session switch; local copy left alone",
			logging.String(logging.FieldSessionID, ticket.SessionID),
			logging.String(logging.FieldEventType, "stale_content_write"),
		)
		return payload, nil
	}

	if w.logger.Enabled(ctx, slog.LevelDebug) {
		digest, derr := content.Digest(payload)
		if derr != nil {
			digest = "unavailable"
		}
		w.logger.Debug("content persisted",
			logging.String(logging.FieldSessionID, ticket.SessionID),
			logging.String("content_digest", digest),
		)
	}
	return payload, nil
}

// IsStale reports whether err means the session changed underneath the caller.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}
