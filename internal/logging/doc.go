// Package logging assembles structured slog loggers and formatting helpers used
// across techxfer.
//
// It owns the console/JSON handlers, the rotating log file (guarded by a file
// lock so concurrent CLI invocations do not rotate the same file) and
// context-aware helpers that tag lines with session and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot fail.
package logging
