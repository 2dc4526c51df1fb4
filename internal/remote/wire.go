package remote

import (
	"encoding/json"
	"strings"
	"time"

	"techxfer/internal/session"
)

type sessionDTO struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	ProjectID    string            `json:"project_id"`
	Status       string            `json:"status"`
	Content      *string           `json:"content"`
	PendingTasks []json.RawMessage `json:"pending_tasks"`
	CreatedAt    *time.Time        `json:"created_at"`
	UpdatedAt    *time.Time        `json:"updated_at"`
}

func (d sessionDTO) toSession() session.Session {
	status, _ := session.ParseStatus(d.Status)
	s := session.Session{
		ID:           d.ID,
		Title:        d.Title,
		ProjectID:    d.ProjectID,
		Status:       status,
		PendingTasks: len(d.PendingTasks),
	}
	if d.Content != nil {
		s.Content = *d.Content
	}
	if d.CreatedAt != nil {
		s.CreatedAt = *d.CreatedAt
	}
	if d.UpdatedAt != nil {
		s.UpdatedAt = *d.UpdatedAt
	}
	return s
}

type blobDTO struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	CreatedAt   *time.Time `json:"created_at"`
}

func (d blobDTO) toBlob() session.Blob {
	b := session.Blob{
		ID:          d.ID,
		SessionID:   d.SessionID,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		Size:        d.Size,
	}
	if d.CreatedAt != nil {
		b.CreatedAt = *d.CreatedAt
	}
	return b
}

type createSessionRequest struct {
	Title     string `json:"title"`
	ProjectID string `json:"project_id"`
}

type updateSessionRequest struct {
	Content string `json:"content"`
}

type queueRequest struct {
	Tasks []string `json:"tasks"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type messageDTO struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at"`
}

// Message is one entry of a session's chat history.
type Message struct {
	ID        string
	Role      string
	Content   string
	CreatedAt time.Time
}

func (d messageDTO) toMessage() Message {
	m := Message{ID: d.ID, Role: strings.TrimSpace(d.Role), Content: d.Content}
	if d.CreatedAt != nil {
		m.CreatedAt = *d.CreatedAt
	}
	return m
}
