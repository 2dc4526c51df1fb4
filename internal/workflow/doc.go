// Package workflow drives task batches on the remote session store.
//
// A Poller submits a batch in one queue request and then polls the session
// and its blob list until the session reaches a terminal status, the attempt
// ceiling is hit or the user selects another session. Every poll result is
// checked against the session tracker before it touches shared state, so a
// loop that outlives its selection never writes into the newly active
// session.
//
// Only one batch runs per Poller at a time. Cancellation is requested from the
// store and observed on the next poll; the loop itself is never interrupted
// by Cancel.
package workflow
