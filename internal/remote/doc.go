// Package remote talks to the session store over its REST API.
//
// Client implements session.Store plus the directory calls the CLI needs
// (listing, creating and deleting sessions, chat history). Requests carry a
// bearer token and an X-Request-ID correlation header. Only idempotent reads
// are retried; uploads, deletes, queue submissions and content writes are
// issued once so that failures surface to the caller immediately.
package remote
