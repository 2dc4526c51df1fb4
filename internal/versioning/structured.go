package versioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"techxfer/internal/logging"
	"techxfer/internal/projection"
	"techxfer/internal/session"
	"techxfer/internal/textutil"
)

// ErrNothingToSave is returned when a structured save has no loaded data.
var ErrNothingToSave = errors.New("nothing to save")

// SaveCSV writes the locally edited table of blobID back as a new version of
// the same file. The new blob is uploaded first, comments move to it, and
// only then is the old blob deleted.
func (m *Manager) SaveCSV(ctx context.Context, ticket session.Ticket, blobID string) (session.Blob, error) {
	blob, ok := m.blobs.Find(ticket, blobID)
	if !ok {
		return session.Blob{}, fmt.Errorf("blob %s: %w", blobID, ErrNothingToSave)
	}
	table, ok := m.proj.Table(ticket, blobID)
	if !ok {
		return session.Blob{}, fmt.Errorf("csv %s: %w", blob.FileName, ErrNothingToSave)
	}

	created, err := m.replace(ctx, ticket, []session.Blob{blob}, session.Upload{
		FileName:    blob.FileName,
		ContentType: "text/csv",
		Data:        []byte(projection.SerializeCSV(table)),
	})
	if err != nil {
		return session.Blob{}, err
	}
	m.proj.Adopt(ticket, blob.ID, created.ID)
	m.refresh(ctx, ticket)
	return created, nil
}

// SaveMetadata writes metadata as a new metadata.json and removes every older
// metadata.json blob.
func (m *Manager) SaveMetadata(ctx context.Context, ticket session.Ticket, metadata map[string]any) (session.Blob, error) {
	if metadata == nil {
		return session.Blob{}, fmt.Errorf("metadata: %w", ErrNothingToSave)
	}
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return session.Blob{}, fmt.Errorf("encode metadata: %w", err)
	}
	created, err := m.replace(ctx, ticket, m.blobs.Named(ticket, session.MetadataFileName), session.Upload{
		FileName:    session.MetadataFileName,
		ContentType: "application/json",
		Data:        data,
	})
	if err != nil {
		return session.Blob{}, err
	}
	m.proj.SetMetadata(ticket, created.ID, metadata)
	m.refresh(ctx, ticket)
	return created, nil
}

// SaveText stores a free-text note. Titles without a .txt or .md extension
// get .txt appended. An existing note with the same name is replaced.
func (m *Manager) SaveText(ctx context.Context, ticket session.Ticket, title, body string) (session.Blob, error) {
	name := NoteFileName(title)
	if name == "" || strings.TrimSpace(body) == "" {
		return session.Blob{}, errors.New("note title and body are required")
	}
	res, err := m.Upload(ctx, ticket, []session.Upload{{
		FileName:    name,
		ContentType: "text/plain",
		Data:        []byte(body),
	}})
	if err != nil {
		return session.Blob{}, err
	}
	if len(res.Uploaded) == 0 {
		return session.Blob{}, fmt.Errorf("note %s was not stored", name)
	}
	return res.Uploaded[0], nil
}

// NoteFileName derives the blob name of a text note. Path separators and
// other characters unsafe in file names are replaced.
func NoteFileName(title string) string {
	name := textutil.SanitizeFileName(title)
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".md") {
		return name
	}
	return name + ".txt"
}

// replace uploads file, migrates comments from previous onto it, then deletes
// previous. Upload and comment failures abort before anything is deleted.
func (m *Manager) replace(ctx context.Context, ticket session.Ticket, previous []session.Blob, file session.Upload) (session.Blob, error) {
	if !ticket.Valid() {
		return session.Blob{}, session.ErrNoActiveSession
	}
	created, err := m.store.UploadBlob(ctx, ticket.SessionID, file)
	if err != nil {
		return session.Blob{}, fmt.Errorf("upload %s: %w", file.FileName, err)
	}

	oldIDs := make([]string, 0, len(previous))
	for _, b := range previous {
		if b.ID != created.ID {
			oldIDs = append(oldIDs, b.ID)
		}
	}
	if err := m.migrate(ctx, ticket, []remap{{oldIDs: oldIDs, newID: created.ID}}); err != nil {
		return created, err
	}
	for _, b := range previous {
		if b.ID != created.ID {
			m.deleteTolerant(ctx, ticket, b)
		}
	}
	m.logger.Info("file saved",
		logging.String(logging.FieldSessionID, ticket.SessionID),
		logging.String(logging.FieldFileName, file.FileName),
		logging.String(logging.FieldBlobID, created.ID),
		logging.Int("replaced_versions", len(oldIDs)),
	)
	return created, nil
}

func (m *Manager) refresh(ctx context.Context, ticket session.Ticket) {
	if _, err := m.blobs.Refresh(ctx, ticket); err != nil && !session.IsStale(err) {
		m.logRefreshFailure(ticket, err)
	}
}
