// Package channel holds what every inbound chat surface shares: the turn
// interface, credential extraction and per-conversation history.
package channel

import (
	"context"
	"net/http"
	"strings"

	"github.com/cortexhub/orchestrator-gateway/internal/inference"
	"github.com/cortexhub/orchestrator-gateway/internal/llm"
	"github.com/cortexhub/orchestrator-gateway/internal/tools"
)

// Turner answers one conversational turn.
type Turner interface {
	HandleTurn(ctx context.Context, text string, history []llm.Message, token string) (tools.Result, error)
}

// TokenFromRequest returns the bearer credential of r without its "Bearer "
// prefix. The Authorization header wins over a token query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		return StripBearer(h)
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// StripBearer removes a case-insensitive "Bearer " prefix.
func StripBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}

// History keeps the most recent messages of a conversation.
type History struct {
	max  int
	msgs []llm.Message
}

// NewHistory keeps at most limit messages; limit <= 0 keeps 20.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 20
	}
	return &History{max: limit}
}

// Add appends a user turn and the assistant's answer.
func (h *History) Add(question, answer string) {
	h.msgs = append(h.msgs,
		llm.Message{Role: inference.RoleUser, Content: question},
		llm.Message{Role: inference.RoleAssistant, Content: answer},
	)
	if over := len(h.msgs) - h.max; over > 0 {
		h.msgs = append([]llm.Message(nil), h.msgs[over:]...)
	}
}

// Messages returns a copy of the kept messages.
func (h *History) Messages() []llm.Message {
	return append([]llm.Message(nil), h.msgs...)
}

// Reset forgets every message.
func (h *History) Reset() {
	h.msgs = nil
}
