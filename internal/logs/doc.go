// Package logs reads the techxfer log file for the CLI.
//
// Last returns the final lines of the file with bounded memory. Follow then
// streams lines appended after an offset until the context ends, restarting
// from the top when the file is rotated or truncated underneath it.
package logs
