// Package workbench binds the session workflow components for one client.
//
// A Workbench owns the freshness tracker, the local session record, the blob
// cache with its metadata projection, the stage machine, the comment and
// lifecycle overlay, the versioning manager and the batch poller. Selecting a
// session resets all of them and derives the initial stage and wizard step;
// every later operation acts on that selection only.
package workbench
