package workbench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"techxfer/internal/content"
	"techxfer/internal/journal"
	"techxfer/internal/projection"
	"techxfer/internal/prompts"
	"techxfer/internal/remote"
	"techxfer/internal/session"
	"techxfer/internal/versioning"
)

// Upload stores files on the active session, replacing same-named blobs.
func (w *Workbench) Upload(ctx context.Context, files []session.Upload) (versioning.Result, error) {
	ticket, err := w.editable()
	if err != nil {
		return versioning.Result{}, err
	}
	for i := range files {
		if files[i].ContentType == "" {
			files[i].ContentType = remote.DetectContentType(files[i].FileName, files[i].Data)
		}
	}
	return w.versions.Upload(ctx, ticket, files)
}

// Download fetches the bytes of a blob of the active session.
func (w *Workbench) Download(ctx context.Context, blobID string) (session.Blob, []byte, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return session.Blob{}, nil, err
	}
	blob, ok := w.blobs.Find(ticket, blobID)
	if !ok {
		return session.Blob{}, nil, fmt.Errorf("blob %s: %w", blobID, remote.ErrNotFound)
	}
	data, err := w.store.DownloadBlob(ctx, blobID)
	if err != nil {
		return session.Blob{}, nil, fmt.Errorf("download %s: %w", blob.FileName, err)
	}
	return blob, data, nil
}

// AddNote saves a text note as a blob.
func (w *Workbench) AddNote(ctx context.Context, title, body string) (session.Blob, error) {
	ticket, err := w.editable()
	if err != nil {
		return session.Blob{}, err
	}
	return w.versions.SaveText(ctx, ticket, title, body)
}

// Comments returns the comment map of the active session.
func (w *Workbench) Comments() (content.Comments, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return nil, err
	}
	return w.overlay.Comments(ticket)
}

// AddComment appends text to the notes of blobID.
func (w *Workbench) AddComment(ctx context.Context, blobID, text string) error {
	ticket, err := w.tracker.Active()
	if err != nil {
		return err
	}
	if _, ok := w.blobs.Find(ticket, blobID); !ok {
		return fmt.Errorf("blob %s: %w", blobID, remote.ErrNotFound)
	}
	return w.overlay.AddComment(ctx, ticket, blobID, text)
}

// Lifecycle returns the lifecycle of the active session.
func (w *Workbench) Lifecycle() (content.Lifecycle, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return content.Lifecycle{}, err
	}
	return w.overlay.Lifecycle(ticket)
}

// SetLifecycle replaces the lifecycle steps and cursor.
func (w *Workbench) SetLifecycle(ctx context.Context, steps []string, current int) (content.Lifecycle, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return content.Lifecycle{}, err
	}
	return w.overlay.UpdateLifecycle(ctx, ticket, steps, current)
}

// StepLifecycle moves the lifecycle cursor one step forward or back.
func (w *Workbench) StepLifecycle(ctx context.Context, forward bool) (content.Lifecycle, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return content.Lifecycle{}, err
	}
	if forward {
		return w.overlay.Advance(ctx, ticket)
	}
	return w.overlay.Back(ctx, ticket)
}

// GenerateLifecycle asks the agent for lifecycle steps.
func (w *Workbench) GenerateLifecycle(ctx context.Context) (content.Lifecycle, bool, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return content.Lifecycle{}, false, err
	}
	return w.overlay.GenerateLifecycle(ctx, ticket)
}

// Metadata returns the decoded metadata document and its blob id. The map is
// nil when no metadata blob exists or none could be decoded.
func (w *Workbench) Metadata() (map[string]any, string) {
	return w.proj.Metadata(w.tracker.Current())
}

// SaveMetadata stores metadata as the new metadata.json blob.
func (w *Workbench) SaveMetadata(ctx context.Context, metadata map[string]any) (session.Blob, error) {
	ticket, err := w.editable()
	if err != nil {
		return session.Blob{}, err
	}
	return w.versions.SaveMetadata(ctx, ticket, metadata)
}

// Tables lists the ids of the loaded CSV blobs.
func (w *Workbench) Tables() []string {
	return w.proj.Tables(w.tracker.Current())
}

// Table returns the parsed grid of a CSV blob, including local edits.
func (w *Workbench) Table(blobID string) (projection.Table, bool) {
	return w.proj.Table(w.tracker.Current(), blobID)
}

// SetCell edits one cell of a CSV grid locally.
func (w *Workbench) SetCell(blobID string, row, col int, value string) error {
	ticket, err := w.editable()
	if err != nil {
		return err
	}
	return w.proj.SetCell(ticket, blobID, row, col, value)
}

// SaveCSV persists the local grid of blobID as a new blob.
func (w *Workbench) SaveCSV(ctx context.Context, blobID string) (session.Blob, error) {
	ticket, err := w.editable()
	if err != nil {
		return session.Blob{}, err
	}
	return w.versions.SaveCSV(ctx, ticket, blobID)
}

// Sync asks the agent to bring metadata.json in line with the session's
// files, then reloads the session.
func (w *Workbench) Sync(ctx context.Context) (session.ChatReply, error) {
	return w.chatAndReload(ctx, "sync metadata", prompts.Sync())
}

// Critique asks the agent to review the generated assets, then reloads the
// session so any files it wrote become visible.
func (w *Workbench) Critique(ctx context.Context) (session.ChatReply, error) {
	return w.chatAndReload(ctx, "critique", prompts.Critique())
}

func (w *Workbench) chatAndReload(ctx context.Context, label, prompt string) (session.ChatReply, error) {
	ticket, err := w.tracker.Active()
	if err != nil {
		return session.ChatReply{}, err
	}
	reply, err := w.store.Chat(ctx, ticket.SessionID, prompt)
	if err != nil {
		return session.ChatReply{}, fmt.Errorf("%s: %w", label, err)
	}
	if _, err := w.Reload(ctx); err != nil {
		return reply, err
	}
	return reply, nil
}

// History lists journaled batches for the active session, newest first.
func (w *Workbench) History(ctx context.Context, limit int) ([]journal.Batch, error) {
	if w.journal == nil {
		return nil, errors.New("batch journal is disabled")
	}
	ticket, err := w.tracker.Active()
	if err != nil {
		return nil, err
	}
	return w.journal.List(ctx, ticket.SessionID, limit)
}

// PruneHistory removes finished batches older than age.
func (w *Workbench) PruneHistory(ctx context.Context, age time.Duration) (int64, error) {
	if w.journal == nil {
		return 0, errors.New("batch journal is disabled")
	}
	return w.journal.Prune(ctx, time.Now().Add(-age))
}
