package session

import (
	"strings"
	"time"
)

// Status is the server-owned processing state of a session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusError      Status = "error"
)

var statusSet = map[Status]struct{}{
	StatusPending:    {},
	StatusProcessing: {},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusError:      {},
}

// ParseStatus normalizes a raw status string. Unknown values are reported as
// not ok and returned verbatim.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := statusSet[s]
	return s, ok
}

// IsTerminal reports whether polling should stop on this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusError:
		return true
	default:
		return false
	}
}

// Session is one tech-transfer workflow instance.
type Session struct {
	ID           string
	Title        string
	ProjectID    string
	Status       Status
	Content      string
	PendingTasks int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Blob is an uploaded or generated file record.
type Blob struct {
	ID          string
	SessionID   string
	FileName    string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// IsCSV reports whether the blob holds CSV text.
func (b Blob) IsCSV() bool {
	return strings.HasSuffix(strings.ToLower(b.FileName), ".csv") ||
		strings.HasPrefix(strings.ToLower(b.ContentType), "text/csv")
}

// MetadataFileName is the distinguished blob holding the structured projection.
const MetadataFileName = "metadata.json"

// IsMetadata reports whether the blob is the metadata document.
func (b Blob) IsMetadata() bool {
	return b.FileName == MetadataFileName
}

// Upload is a file about to be sent to the store.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ChatReply is the synchronous answer to a one-shot agent prompt.
type ChatReply struct {
	Role    string
	Content string
}
