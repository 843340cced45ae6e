package tui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexhub/orchestrator-gateway/internal/llm"
)

type fakeSender struct {
	reply    *ChatResponse
	err      error
	history  []llm.Message
	cleared  bool
	clearErr error
}

func (f *fakeSender) Send(_ context.Context, _ string, history []llm.Message) (*ChatResponse, error) {
	f.history = history
	return f.reply, f.err
}

func (f *fakeSender) ClearSession(context.Context) error {
	f.cleared = true
	return f.clearErr
}

func enter(t *testing.T, a *App, text string) tea.Cmd {
	t.Helper()
	a.input.SetValue(text)
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestApp_SendsTurnAndShowsDraft(t *testing.T) {
	sender := &fakeSender{reply: &ChatResponse{
		Answer: "Which company?",
		Action: llm.ActionCreateProject,
		Params: map[string]any{"name": "Apollo", "pending_confirmation": true},
	}}
	a := NewApp(sender, "http://localhost:8000")

	cmd := enter(t, a, "create project Apollo")
	require.NotNil(t, cmd)
	assert.True(t, a.waiting)
	assert.Empty(t, a.input.Value())

	a.Update(cmd())

	assert.False(t, a.waiting)
	msgs := a.chat.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, Message{Role: RoleAssistant, Content: "Which company?"}, msgs[1])
	assert.Len(t, a.history, 2)
	assert.True(t, a.draft.Pending())
	assert.Contains(t, a.draft.content(), "name: Apollo")
	require.Len(t, a.activity.Events(), 1)
	assert.Equal(t, llm.ActionCreateProject, a.activity.Events()[0].Type)

	// the next turn carries the history
	a.Update(enter(t, a, "Alpha")())
	assert.Len(t, sender.history, 2)
}

func TestApp_ErrorReply(t *testing.T) {
	a := NewApp(&fakeSender{err: errors.New("connection refused")}, "x")
	a.Update(enter(t, a, "hi")())

	msgs := a.chat.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleError, msgs[1].Role)
	assert.Empty(t, a.history)
}

func TestApp_IgnoresEmptyAndBusyInput(t *testing.T) {
	a := NewApp(&fakeSender{}, "x")
	assert.Nil(t, enter(t, a, "   "))

	a.waiting = true
	assert.Nil(t, enter(t, a, "hello"))
}

func TestComposer_LocksWhileTurnInFlight(t *testing.T) {
	a := NewApp(&fakeSender{reply: &ChatResponse{Answer: "ok", Action: llm.ActionNoTool}}, "x")

	cmd := enter(t, a, "hello")
	require.NotNil(t, cmd)
	assert.True(t, a.input.waiting)

	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("z")})
	assert.Empty(t, a.input.Value())
	assert.Equal(t, waitingPlaceholder, a.input.field.Placeholder)

	a.Update(cmd())
	assert.False(t, a.input.waiting)
	assert.Equal(t, idlePlaceholder, a.input.field.Placeholder)
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("z")})
	assert.Equal(t, "z", a.input.Value())
}

func TestComposer_RecallsSentTurns(t *testing.T) {
	c := NewComposer(DefaultKeyMap)
	for _, text := range []string{"create project Apollo", "create project Apollo", "Alpha"} {
		c.SetValue(text)
		c.Take()
	}
	require.Len(t, c.sent, 2)

	up := tea.KeyMsg{Type: tea.KeyUp}
	down := tea.KeyMsg{Type: tea.KeyDown}

	c.Update(up)
	assert.Equal(t, "Alpha", c.Value())
	c.Update(up)
	assert.Equal(t, "create project Apollo", c.Value())
	c.Update(up)
	assert.Equal(t, "create project Apollo", c.Value())
	c.Update(down)
	assert.Equal(t, "Alpha", c.Value())
	c.Update(down)
	assert.Empty(t, c.Value())
}

func TestSession_PendingDraftUsesPendingFrame(t *testing.T) {
	s := NewSession()
	s.SetParams(map[string]any{"name": "Apollo"}, llm.ActionCreateProject)
	assert.Contains(t, s.content(), "State: collecting")

	s.SetParams(map[string]any{"name": "Apollo", "pending_confirmation": true}, llm.ActionCreateProject)
	assert.Contains(t, s.content(), "State: waiting for confirmation")
	assert.Contains(t, s.View(40, 12), "Apollo")
}

func TestApp_Commands(t *testing.T) {
	sender := &fakeSender{}
	a := NewApp(sender, "x")
	a.history = []llm.Message{{Role: "user", Content: "x"}}
	a.draft.SetParams(map[string]any{"code": "AP01"}, llm.ActionCreateProject)

	cmd := enter(t, a, "/reset")
	require.NotNil(t, cmd)
	assert.Empty(t, a.history)
	assert.NotContains(t, a.draft.content(), "AP01")

	a.Update(cmd())
	assert.True(t, sender.cleared)
	assert.Equal(t, "Session cleared.", a.chat.Messages()[0].Content)

	assert.Nil(t, enter(t, a, "/help"))
	assert.Nil(t, enter(t, a, "/bogus"))
	assert.Len(t, a.chat.Messages(), 3)
}

func TestApp_TabSwitchesPanel(t *testing.T) {
	a := NewApp(&fakeSender{}, "x")
	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ActivityPanel, a.currentPanel)
	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, SessionPanel, a.currentPanel)
}

func TestApp_View(t *testing.T) {
	a := NewApp(&fakeSender{}, "http://gw")
	assert.Equal(t, "Initializing...", a.View())

	a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Contains(t, a.View(), "http://gw")
}

func TestClient_SendAndClear(t *testing.T) {
	var gotAuth, gotQuestion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/chat":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			gotQuestion, _ = body["question"].(string)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"answer":"hi","action":"NO_TOOL","params":{}}`))
		case "/api/v1/session":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok", 5*time.Second)
	res, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Answer)
	assert.Equal(t, "hello", gotQuestion)
	assert.Equal(t, "Bearer tok", gotAuth)

	require.NoError(t, c.ClearSession(context.Background()))
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"question is required"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Send(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "400"))

	assert.Error(t, NewClient(srv.URL, "", time.Second).ClearSession(context.Background()))
}
