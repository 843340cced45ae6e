// Package tui is the terminal chat client behind "orchestrator chat".
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cortexhub/orchestrator-gateway/internal/inference"
	"github.com/cortexhub/orchestrator-gateway/internal/llm"
	"github.com/cortexhub/orchestrator-gateway/internal/session"
)

const turnTimeout = 2 * time.Minute

type Panel int

const (
	SessionPanel Panel = iota
	ActivityPanel
)

// Sender is the gateway as seen by the client.
type Sender interface {
	Send(ctx context.Context, question string, history []llm.Message) (*ChatResponse, error)
	ClearSession(ctx context.Context) error
}

type replyMsg struct {
	question string
	res      *ChatResponse
	err      error
}

type clearedMsg struct{ err error }

type App struct {
	width, height int
	currentPanel  Panel
	sender        Sender
	target        string
	chat          *Chat
	draft         *Session
	activity      *Activity
	input         *Composer
	keys          KeyMap
	history       []llm.Message
	waiting       bool
}

// NewApp creates the client model; target is shown in the status bar.
func NewApp(sender Sender, target string) *App {
	return &App{
		currentPanel: SessionPanel,
		sender:       sender,
		target:       target,
		chat:         NewChat(),
		draft:        NewSession(),
		activity:     NewActivity(),
		input:        NewComposer(DefaultKeyMap),
		keys:         DefaultKeyMap,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.chat.Init(), a.draft.Init(), a.activity.Init(), a.input.Init())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Tab):
			a.currentPanel = (a.currentPanel + 1) % 2
		case key.Matches(msg, a.keys.Send):
			return a, a.submit()
		}
	case replyMsg:
		a.receive(msg)
	case clearedMsg:
		if msg.err != nil {
			a.chat.AddMessage(RoleError, "could not clear the session: "+msg.err.Error())
			a.activity.AddEvent("error", msg.err.Error())
		} else {
			a.chat.AddMessage(RoleSystem, "Session cleared.")
			a.activity.AddEvent("reset", "session cleared")
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	cmds = append(cmds, cmd)
	a.draft, cmd = a.draft.Update(msg)
	cmds = append(cmds, cmd)
	a.activity, cmd = a.activity.Update(msg)
	cmds = append(cmds, cmd)
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// submit handles the text in the input bar: slash commands locally,
// everything else as a turn.
func (a *App) submit() tea.Cmd {
	if a.waiting {
		return nil
	}
	text := a.input.Take()
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		return a.command(text)
	}

	a.chat.AddMessage(RoleUser, text)
	a.waiting = true
	a.input.SetWaiting(true)
	history := append([]llm.Message(nil), a.history...)
	sender := a.sender
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		res, err := sender.Send(ctx, text, history)
		return replyMsg{question: text, res: res, err: err}
	}
}

func (a *App) command(text string) tea.Cmd {
	switch strings.Fields(text)[0] {
	case "/quit", "/exit":
		return tea.Quit
	case "/reset":
		a.history = nil
		a.draft.SetParams(nil, "")
		sender := a.sender
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
			defer cancel()
			return clearedMsg{err: sender.ClearSession(ctx)}
		}
	case "/help":
		a.chat.AddMessage(RoleSystem, "Commands: /reset clears the project draft, /quit exits. Tab switches the side panel.")
	default:
		a.chat.AddMessage(RoleSystem, "Unknown command "+text+". Try /help.")
	}
	return nil
}

func (a *App) receive(msg replyMsg) {
	a.waiting = false
	a.input.SetWaiting(false)
	if msg.err != nil {
		a.chat.AddMessage(RoleError, msg.err.Error())
		a.activity.AddEvent("error", msg.err.Error())
		return
	}
	a.chat.AddMessage(RoleAssistant, msg.res.Answer)
	a.history = append(a.history,
		llm.Message{Role: inference.RoleUser, Content: msg.question},
		llm.Message{Role: inference.RoleAssistant, Content: msg.res.Answer},
	)
	a.draft.SetParams(msg.res.Params, msg.res.Action)
	a.activity.AddEvent(msg.res.Action, fmt.Sprintf("%d field(s) in draft", countFields(msg.res.Params)))
}

func countFields(params map[string]any) int {
	n := 0
	for k := range params {
		if k != session.PendingConfirmationKey {
			n++
		}
	}
	return n
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	statusBar := a.statusBarView()
	inputBar := a.input.View()

	contentHeight := a.height - lipgloss.Height(statusBar) - lipgloss.Height(inputBar)

	leftWidth := int(float64(a.width) * 0.65)
	rightWidth := a.width - leftWidth

	chatView := a.chat.View(leftWidth, contentHeight)
	var rightView string
	switch a.currentPanel {
	case ActivityPanel:
		rightView = a.activity.View(rightWidth, contentHeight)
	default:
		rightView = a.draft.View(rightWidth, contentHeight)
	}

	layout := lipgloss.JoinHorizontal(lipgloss.Top, chatView, rightView)

	return AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left, statusBar, layout, inputBar))
}

func (a *App) statusBarView() string {
	state := "ready"
	if a.waiting {
		state = "thinking..."
	}
	return StatusBarStyle.Width(a.width).Render(fmt.Sprintf("Orchestrator | %s | %s", a.target, state))
}
