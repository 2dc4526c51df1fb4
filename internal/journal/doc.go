// Package journal keeps a local SQLite history of task batches run from this
// client.
//
// The journal is a record for people, not a source of truth: the workflow
// never reads it to make decisions and the remote session store stays
// authoritative. Schema changes bump the version in schema.go; users delete
// the journal file to adopt the new schema.
package journal
