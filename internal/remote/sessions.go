package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"techxfer/internal/session"
)

// ListSessions returns the sessions of projectID.
func (c *Client) ListSessions(ctx context.Context, projectID string) ([]session.Session, error) {
	query := url.Values{}
	if projectID = strings.TrimSpace(projectID); projectID != "" {
		query.Set("project_id", projectID)
	}
	var dtos []sessionDTO
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/api/sessions", query: query}, &dtos); err != nil {
		return nil, err
	}
	out := make([]session.Session, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toSession())
	}
	return out, nil
}

// CreateSession creates an empty session.
func (c *Client) CreateSession(ctx context.Context, projectID, title string) (session.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return session.Session{}, errors.New("create session: title required")
	}
	req, err := jsonRequest(http.MethodPost, "/api/sessions", createSessionRequest{Title: title, ProjectID: strings.TrimSpace(projectID)})
	if err != nil {
		return session.Session{}, err
	}
	var dto sessionDTO
	if err := c.doJSON(ctx, req, &dto); err != nil {
		return session.Session{}, err
	}
	return dto.toSession(), nil
}

// DeleteSession removes a session and its blobs.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/api/sessions/" + escape(id)})
	return err
}

func (c *Client) GetSession(ctx context.Context, id string) (session.Session, error) {
	var dto sessionDTO
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/api/sessions/" + escape(id)}, &dto); err != nil {
		return session.Session{}, err
	}
	if dto.ID == "" {
		dto.ID = id
	}
	return dto.toSession(), nil
}

func (c *Client) UpdateContent(ctx context.Context, id, content string) (session.Session, error) {
	req, err := jsonRequest(http.MethodPut, "/api/sessions/"+escape(id), updateSessionRequest{Content: content})
	if err != nil {
		return session.Session{}, err
	}
	var dto sessionDTO
	if err := c.doJSON(ctx, req, &dto); err != nil {
		return session.Session{}, err
	}
	return dto.toSession(), nil
}

func (c *Client) CancelSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/api/sessions/" + escape(id) + "/cancel"})
	return err
}

func (c *Client) RetrySession(ctx context.Context, id string) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/api/sessions/" + escape(id) + "/retry"})
	return err
}

func (c *Client) QueueTasks(ctx context.Context, sessionID string, tasks []string) error {
	if len(tasks) == 0 {
		return errors.New("queue tasks: empty batch")
	}
	req, err := jsonRequest(http.MethodPost, "/api/sessions/"+escape(sessionID)+"/queue", queueRequest{Tasks: tasks})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, req)
	return err
}

func (c *Client) Chat(ctx context.Context, sessionID, message string) (session.ChatReply, error) {
	req, err := jsonRequest(http.MethodPost, "/api/sessions/"+escape(sessionID)+"/chat", chatRequest{Message: message})
	if err != nil {
		return session.ChatReply{}, err
	}
	var reply struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.doJSON(ctx, req, &reply); err != nil {
		return session.ChatReply{}, err
	}
	return session.ChatReply{Role: reply.Role, Content: reply.Content}, nil
}

// ListMessages returns the chat history of a session.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var dtos []messageDTO
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/api/sessions/" + escape(sessionID) + "/messages"}, &dtos); err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toMessage())
	}
	return out, nil
}

var _ session.Store = (*Client)(nil)
