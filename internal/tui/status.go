package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cortexhub/orchestrator-gateway/internal/session"
)

// Session is the side panel showing the project draft held by the gateway.
type Session struct {
	params     map[string]any
	lastAction string
}

func NewSession() *Session {
	return &Session{params: map[string]any{}}
}

func (s *Session) Init() tea.Cmd {
	return nil
}

func (s *Session) Update(msg tea.Msg) (*Session, tea.Cmd) {
	return s, nil
}

// SetParams replaces the draft with the params of the last reply.
func (s *Session) SetParams(params map[string]any, action string) {
	if params == nil {
		params = map[string]any{}
	}
	s.params = params
	s.lastAction = action
}

// Pending reports whether the gateway is waiting for a confirmation.
func (s *Session) Pending() bool {
	v, _ := s.params[session.PendingConfirmationKey].(bool)
	return v
}

func (s *Session) content() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Last action: %s\n", orDash(s.lastAction))
	state := "collecting"
	if s.Pending() {
		state = "waiting for confirmation"
	}
	fmt.Fprintf(&sb, "State: %s\n\n", state)
	for _, f := range session.Fields {
		v, ok := s.params[string(f)]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s: %v\n", f, v)
	}
	return sb.String()
}

func (s *Session) View(width, height int) string {
	style := DraftPanelStyle
	if s.Pending() {
		style = DraftPendingPanelStyle
	}
	return style.Width(width).Height(height).Render(s.content())
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
