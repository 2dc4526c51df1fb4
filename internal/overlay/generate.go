package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"techxfer/internal/content"
	"techxfer/internal/logging"
	"techxfer/internal/prompts"
	"techxfer/internal/session"
)

// ErrNoReply is returned when the agent answers with a non-assistant role.
var ErrNoReply = errors.New("agent returned no reply")

var (
	arrayPattern       = regexp.MustCompile(`\[[\s\S]*?\]`)
	finalAnswerPattern = regexp.MustCompile(`(?i)^final answer:\s*`)
)

// GenerateLifecycle asks the agent for lifecycle steps and stores them with
// the cursor at the first step. An unusable reply falls back to the default
// lifecycle; usedDefault reports that. A failed chat call is returned as is.
func (o *Overlay) GenerateLifecycle(ctx context.Context, ticket session.Ticket) (lc content.Lifecycle, usedDefault bool, err error) {
	if !ticket.Valid() {
		return content.Lifecycle{}, false, session.ErrNoActiveSession
	}
	reply, err := o.chat.Chat(ctx, ticket.SessionID, prompts.Lifecycle())
	if err != nil {
		return content.Lifecycle{}, false, fmt.Errorf("generate lifecycle: %w", err)
	}
	if strings.EqualFold(reply.Role, "user") {
		return content.Lifecycle{}, false, ErrNoReply
	}

	steps, ok := ParseSteps(reply.Content)
	if !ok {
		logging.WarnWithContext(o.logger, "lifecycle reply unusable; using default steps", "lifecycle_parse_failed",
			logging.String(logging.FieldSessionID, ticket.SessionID),
			logging.Int("reply_length", len(reply.Content)),
			logging.String(logging.FieldErrorHint, "regenerate or edit the lifecycle manually"),
		)
		steps = content.DefaultLifecycle().Steps
		usedDefault = true
	}
	lc, err = o.UpdateLifecycle(ctx, ticket, steps, 0)
	return lc, usedDefault, err
}

// ParseSteps extracts a non-empty JSON string array from an agent reply. The
// first bracketed span is tried, then the whole reply with any leading
// "Final Answer:" removed.
func ParseSteps(reply string) ([]string, bool) {
	if match := arrayPattern.FindString(reply); match != "" {
		if steps, ok := decodeSteps(match); ok {
			return steps, true
		}
	}
	cleaned := strings.TrimSpace(finalAnswerPattern.ReplaceAllString(strings.TrimSpace(reply), ""))
	return decodeSteps(cleaned)
}

func decodeSteps(raw string) ([]string, bool) {
	var values []any
	if err := json.Unmarshal([]byte(raw), &values); err != nil || len(values) == 0 {
		return nil, false
	}
	steps := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		steps = append(steps, s)
	}
	return steps, true
}
