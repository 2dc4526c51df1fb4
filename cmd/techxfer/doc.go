// Command techxfer drives tech-transfer sessions from the terminal.
//
// Every session-scoped command takes the session id as its first argument,
// selects that session on a fresh workbench and runs one operation against
// it. Batch commands (convert, run, metadata generate, retry, watch) poll
// until the batch ends and print progress to stderr; Ctrl-C stops polling
// without cancelling the batch on the server.
package main
