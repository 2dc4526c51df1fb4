// Package session defines the session and blob records served by the remote
// session store, the Store contract the rest of techxfer consumes, and the
// local state that tracks the active session.
//
// Three pieces cooperate to keep responses from landing on the wrong session:
//
//   - Tracker hands out a Ticket (session id plus generation) whenever the
//     active session changes. Work captures a ticket when it starts and checks
//     Fresh before it mutates shared state.
//   - Holder keeps the local copy of the active session. Every change, whether
//     optimistic or confirmed by the server, goes through Apply.
//   - ContentWriter is the only path that persists the content document. It
//     merges patches into the latest known content so independent owners do
//     not clobber each other.
package session
