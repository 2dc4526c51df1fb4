package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"techxfer/internal/config"
)

// Service publishes batch alerts. Implementations must be safe for use by the
// poller while the CLI sends its own messages.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, title string, tasks int, elapsed time.Duration) error
	NotifyBatchStopped(ctx context.Context, title, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy publisher for the configured topic URL, or a
// service that sends nothing when no topic is set.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfy{topicURL: topic, http: &http.Client{Timeout: timeout}}
}

// message is one ntfy publish: the body plus the Title/Tags/Priority headers.
type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func (m message) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "techxfer")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Title", "Tech Transfer - "+m.title)
	h.Set("Tags", strings.Join(append([]string{"techxfer"}, m.tags...), ","))
	if m.priority != "" {
		h.Set("Priority", m.priority)
	}
	return h
}

type ntfy struct {
	topicURL string
	http     *http.Client
}

func (n *ntfy) NotifyBatchCompleted(ctx context.Context, title string, tasks int, elapsed time.Duration) error {
	what := "Tasks finished"
	if tasks > 0 {
		what = fmt.Sprintf("%d tasks finished", tasks)
	}
	return n.publish(ctx, message{
		title: "Complete",
		body:  fmt.Sprintf("✅ %s: %s\nElapsed: %s", what, sessionName(title), max(elapsed.Round(time.Second), 0)),
		tags:  []string{"batch", "completed"},
	})
}

func (n *ntfy) NotifyBatchStopped(ctx context.Context, title, reason string) error {
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "stopped"
	}
	return n.publish(ctx, message{
		title: "Stopped",
		body:  "⏹ " + sessionName(title) + ": " + reason,
		tags:  []string{"batch", "stopped"},
	})
}

func (n *ntfy) NotifyError(ctx context.Context, err error, label string) error {
	body := "❌ Error"
	if label = strings.TrimSpace(label); label != "" {
		body += " with " + label
	}
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	return n.publish(ctx, message{
		title:    "Error",
		body:     body + ": " + detail,
		tags:     []string{"error", "alert"},
		priority: "high",
	})
}

func (n *ntfy) TestNotification(ctx context.Context) error {
	return n.publish(ctx, message{
		title:    "Test",
		body:     "🧪 Notification system test",
		tags:     []string{"test"},
		priority: "low",
	})
}

func (n *ntfy) publish(ctx context.Context, m message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader(m.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header = m.header()

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("publish to ntfy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func sessionName(title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	return "untitled session"
}

type noopService struct{}

func (noopService) NotifyBatchCompleted(context.Context, string, int, time.Duration) error { return nil }
func (noopService) NotifyBatchStopped(context.Context, string, string) error               { return nil }
func (noopService) NotifyError(context.Context, error, string) error                       { return nil }
func (noopService) TestNotification(context.Context) error                                 { return nil }
