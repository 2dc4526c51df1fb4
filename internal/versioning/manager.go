package versioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"techxfer/internal/blobcache"
	"techxfer/internal/content"
	"techxfer/internal/logging"
	"techxfer/internal/projection"
	"techxfer/internal/session"
)

// BlobStore is the subset of the session store the manager writes through.
type BlobStore interface {
	UploadBlob(ctx context.Context, sessionID string, file session.Upload) (session.Blob, error)
	DeleteBlob(ctx context.Context, blobID string) error
}

// Manager uploads files with replace-by-name semantics.
type Manager struct {
	store  BlobStore
	blobs  *blobcache.Cache
	proj   *projection.Projection
	writer *session.ContentWriter
	logger *slog.Logger
}

// NewManager builds a manager.
func NewManager(store BlobStore, blobs *blobcache.Cache, proj *projection.Projection, writer *session.ContentWriter, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		blobs:  blobs,
		proj:   proj,
		writer: writer,
		logger: logging.NewComponentLogger(logger, "versioning"),
	}
}

// FileError records the failed upload of one file in a batch.
type FileError struct {
	FileName string
	Err      error
}

func (e FileError) Error() string { return fmt.Sprintf("upload %s: %v", e.FileName, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// Result summarizes an upload batch.
type Result struct {
	Uploaded []session.Blob
	// Replaced maps each new blob id to the ids it superseded.
	Replaced map[string][]string
	Failed   []FileError
	// CommentsErr is set when migrated comments could not be persisted.
	CommentsErr error
	Blobs       []session.Blob
}

// Err joins the per-file failures.
func (r Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

type remap struct {
	oldIDs []string
	newID  string
}

// Upload stores files for ticket's session. For each file the blobs already
// carrying its name are deleted, the file is uploaded and any comments on the
// deleted blobs move to the new id. Comments are persisted in one write and
// the blob cache is refreshed once after the whole batch.
func (m *Manager) Upload(ctx context.Context, ticket session.Ticket, files []session.Upload) (Result, error) {
	if !ticket.Valid() {
		return Result{}, session.ErrNoActiveSession
	}
	res := Result{Replaced: make(map[string][]string)}
	var remaps []remap
	var batch []session.Blob

	for _, file := range files {
		name := strings.TrimSpace(file.FileName)
		if name == "" {
			res.Failed = append(res.Failed, FileError{FileName: file.FileName, Err: errors.New("file name is empty")})
			continue
		}
		file.FileName = name

		previous := m.existing(ticket, batch, name)
		oldIDs := make([]string, 0, len(previous))
		for _, old := range previous {
			oldIDs = append(oldIDs, old.ID)
			m.deleteTolerant(ctx, ticket, old)
		}
		batch = removeIDs(batch, oldIDs)

		created, err := m.store.UploadBlob(ctx, ticket.SessionID, file)
		if err != nil {
			logging.ErrorWithContext(m.logger, "upload failed", "upload_failed",
				logging.String(logging.FieldSessionID, ticket.SessionID),
				logging.String(logging.FieldFileName, name),
				logging.Int("replaced_versions", len(oldIDs)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "upload the file again"),
				logging.String(logging.FieldImpact, "previous versions were already deleted"),
			)
			res.Failed = append(res.Failed, FileError{FileName: name, Err: err})
			continue
		}
		batch = append(batch, created)
		res.Uploaded = append(res.Uploaded, created)
		if len(oldIDs) > 0 {
			res.Replaced[created.ID] = oldIDs
			remaps = append(remaps, remap{oldIDs: oldIDs, newID: created.ID})
		}
		m.logger.Info("file uploaded",
			logging.String(logging.FieldSessionID, ticket.SessionID),
			logging.String(logging.FieldFileName, name),
			logging.String(logging.FieldBlobID, created.ID),
			logging.Int("replaced_versions", len(oldIDs)),
		)
	}

	res.CommentsErr = m.migrate(ctx, ticket, remaps)

	blobs, err := m.blobs.Refresh(ctx, ticket)
	if err != nil && !session.IsStale(err) {
		m.logRefreshFailure(ticket, err)
	}
	res.Blobs = blobs
	return res, res.Err()
}

// existing returns the cached blobs named name plus any uploaded earlier in
// the same batch.
func (m *Manager) existing(ticket session.Ticket, batch []session.Blob, name string) []session.Blob {
	found := m.blobs.Named(ticket, name)
	for _, b := range batch {
		if b.FileName == name && !containsID(found, b.ID) {
			found = append(found, b)
		}
	}
	return found
}

func (m *Manager) deleteTolerant(ctx context.Context, ticket session.Ticket, blob session.Blob) {
	if err := m.store.DeleteBlob(ctx, blob.ID); err != nil {
		logging.WarnWithContext(m.logger, "could not delete previous version; it may already be gone", "blob_delete_failed",
			logging.String(logging.FieldSessionID, ticket.SessionID),
			logging.String(logging.FieldBlobID, blob.ID),
			logging.String(logging.FieldFileName, blob.FileName),
			logging.Error(err),
			logging.String(logging.FieldImpact, "an older version may remain listed"),
		)
	}
}

// migrate persists every comment remap in one content write. Stale tickets
// are ignored.
func (m *Manager) migrate(ctx context.Context, ticket session.Ticket, remaps []remap) error {
	if len(remaps) == 0 {
		return nil
	}
	patches := make([]content.Patch, 0, len(remaps))
	for _, r := range remaps {
		patches = append(patches, content.MigrateComments(r.oldIDs, r.newID))
	}
	if _, err := m.writer.Patch(ctx, ticket, session.ApplyOnSuccess, patches...); err != nil {
		if session.IsStale(err) {
			return nil
		}
		logging.WarnWithContext(m.logger, "failed to persist migrated comments", "comment_migration_failed",
			logging.String(logging.FieldSessionID, ticket.SessionID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "comments stay attached to deleted blob ids"),
		)
		return fmt.Errorf("migrate comments: %w", err)
	}
	return nil
}

func (m *Manager) logRefreshFailure(ticket session.Ticket, err error) {
	logging.WarnWithContext(m.logger, "blob refresh after upload failed", "blob_refresh_failed",
		logging.String(logging.FieldSessionID, ticket.SessionID),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "refresh the session to see the new files"),
	)
}

func containsID(blobs []session.Blob, id string) bool {
	for _, b := range blobs {
		if b.ID == id {
			return true
		}
	}
	return false
}

func removeIDs(blobs []session.Blob, ids []string) []session.Blob {
	if len(ids) == 0 {
		return blobs
	}
	out := blobs[:0]
	for _, b := range blobs {
		drop := false
		for _, id := range ids {
			if b.ID == id {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, b)
		}
	}
	return out
}
