// Package blobcache mirrors the blob list of the active session.
//
// The cache is refreshed only on explicit request. A response is applied only
// if the session it was requested for is still the active one when the
// response arrives; late responses for a previous selection are dropped.
package blobcache

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"techxfer/internal/logging"
	"techxfer/internal/session"
)

// Lister fetches the blobs of a session.
type Lister interface {
	ListBlobs(ctx context.Context, sessionID string) ([]session.Blob, error)
}

// Listener is notified after every applied refresh.
type Listener func(ctx context.Context, ticket session.Ticket, blobs []session.Blob)

// Cache is the in-memory blob mirror.
type Cache struct {
	lister  Lister
	tracker *session.Tracker
	logger  *slog.Logger

	mu        sync.RWMutex
	ticket    session.Ticket
	blobs     []session.Blob
	listeners []Listener
}

// New builds a cache bound to tracker.
func New(lister Lister, tracker *session.Tracker, logger *slog.Logger) *Cache {
	return &Cache{
		lister:  lister,
		tracker: tracker,
		logger:  logging.NewComponentLogger(logger, "blobcache"),
	}
}

// OnRefresh registers fn to run after each applied refresh.
func (c *Cache) OnRefresh(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Refresh fetches the blob list for ticket and applies it. A stale response
// returns session.ErrStale.
func (c *Cache) Refresh(ctx context.Context, ticket session.Ticket) ([]session.Blob, error) {
	if !ticket.Valid() {
		return nil, session.ErrNoActiveSession
	}
	blobs, err := c.lister.ListBlobs(ctx, ticket.SessionID)
	if err != nil {
		return nil, err
	}
	applied, ok := c.Apply(ctx, ticket, blobs)
	if !ok {
		return nil, session.ErrStale
	}
	return applied, nil
}

// Apply installs blobs fetched for ticket when ticket is still fresh. Only
// blobs belonging to the active session are kept. Listeners run after the
// cache is updated.
func (c *Cache) Apply(ctx context.Context, ticket session.Ticket, blobs []session.Blob) ([]session.Blob, bool) {
	c.mu.Lock()
	if !c.tracker.Fresh(ticket) {
		c.mu.Unlock()
		c.logger.Debug("discarding stale blob list",
			logging.String(logging.FieldSessionID, ticket.SessionID),
			logging.String(logging.FieldEventType, "stale_blob_response"),
		)
		return nil, false
	}
	// Blobs without an owning session are dropped along with foreign ones.
	filtered := make([]session.Blob, 0, len(blobs))
	for _, b := range blobs {
		if b.SessionID == ticket.SessionID {
			filtered = append(filtered, b)
		}
	}
	c.ticket = ticket
	c.blobs = filtered
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	out := slices.Clone(filtered)
	for _, fn := range listeners {
		fn(ctx, ticket, slices.Clone(filtered))
	}
	return out, true
}

// Blobs returns the cached list for ticket, or nil when the cache holds
// another selection.
func (c *Cache) Blobs(ticket session.Ticket) []session.Blob {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ticket != ticket {
		return nil
	}
	return slices.Clone(c.blobs)
}

// Named returns the cached blobs of ticket called name.
func (c *Cache) Named(ticket session.Ticket, name string) []session.Blob {
	var out []session.Blob
	for _, b := range c.Blobs(ticket) {
		if b.FileName == name {
			out = append(out, b)
		}
	}
	return out
}

// Find looks a blob up by id.
func (c *Cache) Find(ticket session.Ticket, id string) (session.Blob, bool) {
	for _, b := range c.Blobs(ticket) {
		if b.ID == id {
			return b, true
		}
	}
	return session.Blob{}, false
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticket = session.Ticket{}
	c.blobs = nil
}
