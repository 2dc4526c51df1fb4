package session

import "sync"

// Holder is the local copy of the active session. Optimistic edits and
// server-confirmed records go through the same Apply reducer.
type Holder struct {
	tracker *Tracker

	mu      sync.Mutex
	ticket  Ticket
	session Session
	loaded  bool
}

// NewHolder binds a holder to tracker.
func NewHolder(tracker *Tracker) *Holder {
	return &Holder{tracker: tracker}
}

// Load replaces the local record with s if ticket is still fresh.
func (h *Holder) Load(ticket Ticket, s Session) bool {
	if s.ID != ticket.SessionID {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.tracker.Fresh(ticket) {
		return false
	}
	h.ticket = ticket
	h.session = s
	h.loaded = true
	return true
}

// Apply runs fn against the local record when ticket is fresh and the record
// belongs to it. It reports whether fn ran.
func (h *Holder) Apply(ticket Ticket, fn func(*Session)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.loaded || h.ticket != ticket || !h.tracker.Fresh(ticket) {
		return false
	}
	fn(&h.session)
	return true
}

// Snapshot returns a copy of the local record for ticket.
func (h *Holder) Snapshot(ticket Ticket) (Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.loaded || h.ticket != ticket || !h.tracker.Fresh(ticket) {
		return Session{}, false
	}
	return h.session, true
}

// Reset forgets the local record.
func (h *Holder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = Session{}
	h.ticket = Ticket{}
	h.loaded = false
}

// Replace swaps in a freshly fetched record for ticket.
func (h *Holder) Replace(ticket Ticket, s Session) bool {
	if s.ID != ticket.SessionID {
		return false
	}
	return h.Apply(ticket, func(local *Session) { *local = s })
}
