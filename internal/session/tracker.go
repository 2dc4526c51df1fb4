package session

import (
	"errors"
	"sync"
)

var (
	// ErrNoActiveSession is returned when an operation needs a selected session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrStale marks a result discarded because the active session changed.
	ErrStale = errors.New("active session changed")
)

// Ticket identifies one selection of a session. Selecting the same id again
// yields a new generation, which invalidates work started under the old one.
type Ticket struct {
	SessionID  string
	Generation uint64
}

// Valid reports whether the ticket names a session.
func (t Ticket) Valid() bool { return t.SessionID != "" }

// Tracker records the active session.
type Tracker struct {
	mu      sync.RWMutex
	current Ticket
}

// NewTracker returns a tracker with no active session.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Switch makes id the active session and returns its ticket. An empty id
// clears the selection.
func (t *Tracker) Switch(id string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = Ticket{SessionID: id, Generation: t.current.Generation + 1}
	return t.current
}

// Current returns the ticket of the active session.
func (t *Tracker) Current() Ticket {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Fresh reports whether ticket still names the active selection.
func (t *Tracker) Fresh(ticket Ticket) bool {
	if !ticket.Valid() {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current == ticket
}

// Active returns the current ticket or ErrNoActiveSession.
func (t *Tracker) Active() (Ticket, error) {
	ticket := t.Current()
	if !ticket.Valid() {
		return Ticket{}, ErrNoActiveSession
	}
	return ticket, nil
}
