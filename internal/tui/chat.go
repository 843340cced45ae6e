package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Roles shown in the transcript.
const (
	RoleUser      = "you"
	RoleAssistant = "orchestrator"
	RoleSystem    = "system"
	RoleError     = "error"
)

type Message struct {
	Role    string
	Content string
}

type Chat struct {
	viewport viewport.Model
	messages []Message
}

func NewChat() *Chat {
	vp := viewport.New(0, 0)
	vp.SetContent("Describe the project you want to create, or ask a question. /help lists commands.\n")
	return &Chat{
		viewport: vp,
		messages: []Message{},
	}
}

func (c *Chat) Init() tea.Cmd {
	return nil
}

func (c *Chat) Update(msg tea.Msg) (*Chat, tea.Cmd) {
	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	return c, cmd
}

func (c *Chat) View(width, height int) string {
	c.viewport.Width = width - 2 // padding
	c.viewport.Height = height - 2
	return ChatPanelStyle.Width(width).Height(height).Render(c.viewport.View())
}

func (c *Chat) AddMessage(role, content string) {
	c.messages = append(c.messages, Message{Role: role, Content: content})
	c.updateContent()
}

// Messages returns the transcript.
func (c *Chat) Messages() []Message {
	return c.messages
}

func (c *Chat) updateContent() {
	var sb strings.Builder
	for _, msg := range c.messages {
		sb.WriteString(roleStyle(msg.Role).Render(msg.Role + ": " + msg.Content))
		sb.WriteString("\n")
	}
	c.viewport.SetContent(sb.String())
	c.viewport.GotoBottom()
}
