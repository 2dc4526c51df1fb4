package session

import "context"

// Store is the remote session store. It is the source of truth for sessions
// and blobs; nothing here caches across calls.
type Store interface {
	GetSession(ctx context.Context, id string) (Session, error)
	// UpdateContent replaces content wholesale. Callers merge first.
	UpdateContent(ctx context.Context, id, content string) (Session, error)
	CancelSession(ctx context.Context, id string) error
	RetrySession(ctx context.Context, id string) error

	ListBlobs(ctx context.Context, sessionID string) ([]Blob, error)
	// UploadBlob always creates a new blob, even when the name exists.
	UploadBlob(ctx context.Context, sessionID string, file Upload) (Blob, error)
	DeleteBlob(ctx context.Context, blobID string) error
	DownloadBlob(ctx context.Context, blobID string) ([]byte, error)

	QueueTasks(ctx context.Context, sessionID string, tasks []string) error
	Chat(ctx context.Context, sessionID, message string) (ChatReply, error)
}
