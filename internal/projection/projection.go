package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"techxfer/internal/logging"
	"techxfer/internal/session"
)

// ErrNoTable reports an edit against a table that is not loaded.
var ErrNoTable = errors.New("csv table not loaded")

// Downloader fetches blob content.
type Downloader interface {
	DownloadBlob(ctx context.Context, blobID string) ([]byte, error)
}

// Projection holds the metadata object and CSV tables of the active session.
type Projection struct {
	downloader Downloader
	tracker    *session.Tracker
	texts      *cache.Cache
	logger     *slog.Logger

	mu         sync.RWMutex
	ticket     session.Ticket
	metadataID string
	metadata   map[string]any
	tables     map[string]Table
}

// New builds a projection. ttl bounds how long downloaded text stays cached;
// zero keeps it until Reset.
func New(downloader Downloader, tracker *session.Tracker, ttl time.Duration, logger *slog.Logger) *Projection {
	expiry := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiry = ttl
		cleanup = 2 * ttl
	}
	return &Projection{
		downloader: downloader,
		tracker:    tracker,
		texts:      cache.New(expiry, cleanup),
		logger:     logging.NewComponentLogger(logger, "projection"),
		tables:     make(map[string]Table),
	}
}

// Update re-scans blobs for metadata.json and CSV files. It is meant to be
// registered as a blob cache listener.
func (p *Projection) Update(ctx context.Context, ticket session.Ticket, blobs []session.Blob) {
	if !p.bind(ticket) {
		return
	}
	p.updateMetadata(ctx, ticket, blobs)
	p.updateTables(ctx, ticket, blobs)
}

// bind switches the projection to ticket, dropping state from any earlier
// selection.
func (p *Projection) bind(ticket session.Ticket) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tracker.Fresh(ticket) {
		return false
	}
	if p.ticket != ticket {
		p.ticket = ticket
		p.metadataID = ""
		p.metadata = nil
		p.tables = make(map[string]Table)
	}
	return true
}

func latestMetadata(blobs []session.Blob) (session.Blob, bool) {
	var latest session.Blob
	found := false
	for _, b := range blobs {
		if !b.IsMetadata() {
			continue
		}
		if !found || !b.CreatedAt.Before(latest.CreatedAt) {
			latest = b
			found = true
		}
	}
	return latest, found
}

func (p *Projection) updateMetadata(ctx context.Context, ticket session.Ticket, blobs []session.Blob) {
	blob, ok := latestMetadata(blobs)
	if !ok {
		p.mutate(ticket, func() {
			p.metadataID = ""
			p.metadata = nil
		})
		return
	}

	p.mu.RLock()
	loaded := p.metadataID
	p.mu.RUnlock()
	if blob.ID == loaded {
		return
	}

	text, err := p.text(ctx, blob.ID)
	if err != nil {
		p.logFailure("metadata download failed; keeping previous metadata", blob, err)
		return
	}
	var decoded map[string]any
	if err := json.Unmarshal(text, &decoded); err != nil || decoded == nil {
		if err == nil {
			err = errors.New("metadata is not a JSON object")
		}
		p.texts.Delete(blob.ID)
		p.logFailure("metadata decode failed; keeping previous metadata", blob, err)
		return
	}
	p.mutate(ticket, func() {
		p.metadataID = blob.ID
		p.metadata = decoded
	})
}

func (p *Projection) updateTables(ctx context.Context, ticket session.Ticket, blobs []session.Blob) {
	present := make(map[string]struct{}, len(blobs))
	for _, blob := range blobs {
		if !blob.IsCSV() {
			continue
		}
		present[blob.ID] = struct{}{}

		p.mu.RLock()
		_, loaded := p.tables[blob.ID]
		p.mu.RUnlock()
		if loaded {
			continue
		}

		text, err := p.text(ctx, blob.ID)
		if err != nil {
			p.logFailure("csv download failed", blob, err)
			continue
		}
		table := ParseCSV(string(text))
		p.mutate(ticket, func() {
			p.tables[blob.ID] = table
		})
	}
	p.mutate(ticket, func() {
		for id := range p.tables {
			if _, ok := present[id]; !ok {
				delete(p.tables, id)
			}
		}
	})
}

// mutate runs fn under the lock when ticket is still the bound, fresh selection.
func (p *Projection) mutate(ticket session.Ticket, fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticket != ticket || !p.tracker.Fresh(ticket) {
		return false
	}
	fn()
	return true
}

func (p *Projection) text(ctx context.Context, blobID string) ([]byte, error) {
	if cached, ok := p.texts.Get(blobID); ok {
		if data, ok := cached.([]byte); ok {
			return data, nil
		}
	}
	data, err := p.downloader.DownloadBlob(ctx, blobID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", blobID, err)
	}
	p.texts.Set(blobID, data, cache.DefaultExpiration)
	return data, nil
}

func (p *Projection) logFailure(msg string, blob session.Blob, err error) {
	logging.WarnWithContext(p.logger, msg, "projection_load_failed",
		logging.String(logging.FieldBlobID, blob.ID),
		logging.String(logging.FieldFileName, blob.FileName),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the next blob refresh retries the download"),
		logging.String(logging.FieldImpact, "displayed data may be out of date"),
	)
}

// Metadata returns a copy of the metadata object and the blob id it came
// from. A nil map means no metadata.json is loaded.
func (p *Projection) Metadata(ticket session.Ticket) (map[string]any, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ticket != ticket || p.metadata == nil {
		return nil, ""
	}
	return maps.Clone(p.metadata), p.metadataID
}

// Table returns the parsed grid for blobID.
func (p *Projection) Table(ticket session.Ticket, blobID string) (Table, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ticket != ticket {
		return nil, false
	}
	t, ok := p.tables[blobID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Tables returns the ids of all loaded tables.
func (p *Projection) Tables(ticket session.Ticket) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ticket != ticket {
		return nil
	}
	ids := make([]string, 0, len(p.tables))
	for id := range p.tables {
		ids = append(ids, id)
	}
	return ids
}

// SetCell edits a loaded table locally. The edit is kept until the blob is
// replaced; SaveCSV persists it.
func (p *Projection) SetCell(ticket session.Ticket, blobID string, row, col int, value string) error {
	var err error
	ok := p.mutate(ticket, func() {
		table, loaded := p.tables[blobID]
		if !loaded {
			err = ErrNoTable
			return
		}
		updated, inRange := table.Set(row, col, value)
		if !inRange {
			err = fmt.Errorf("cell (%d,%d) out of range for %dx%d table", row, col, len(table), width(table))
			return
		}
		p.tables[blobID] = updated
	})
	if !ok {
		return session.ErrStale
	}
	return err
}

// Adopt moves the table loaded for oldID to newID, keeping local edits when
// a saved CSV comes back under a new blob id.
func (p *Projection) Adopt(ticket session.Ticket, oldID, newID string) bool {
	return p.mutate(ticket, func() {
		if table, ok := p.tables[oldID]; ok {
			delete(p.tables, oldID)
			p.tables[newID] = table
		}
	})
}

// SetMetadata replaces the in-memory metadata after a successful save.
func (p *Projection) SetMetadata(ticket session.Ticket, blobID string, metadata map[string]any) bool {
	return p.mutate(ticket, func() {
		p.metadataID = blobID
		p.metadata = maps.Clone(metadata)
	})
}

// Reset drops all state, including cached text.
func (p *Projection) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticket = session.Ticket{}
	p.metadataID = ""
	p.metadata = nil
	p.tables = make(map[string]Table)
	p.texts.Flush()
}

func width(t Table) int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}
