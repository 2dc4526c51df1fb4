// Package preflight provides readiness checks for the session store, the
// local state directories and the optional features techxfer depends on.
//
// The CLI "techxfer doctor" command runs RunAll and renders one status line
// per Result. Disabled features report as passed with a "Disabled" detail.
package preflight
