package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	idlePlaceholder    = "Describe a project, answer the last question, or /help"
	waitingPlaceholder = "waiting for the orchestrator..."
	maxTurnLength      = 2000
)

// Composer is the input bar. It locks while a turn is in flight and recalls
// earlier turns with the arrow keys.
type Composer struct {
	field   textinput.Model
	keys    KeyMap
	sent    []string
	recall  int
	waiting bool
}

func NewComposer(keys KeyMap) *Composer {
	ti := textinput.New()
	ti.Placeholder = idlePlaceholder
	ti.CharLimit = maxTurnLength
	ti.Focus()
	return &Composer{field: ti, keys: keys}
}

func (c *Composer) Init() tea.Cmd {
	return textinput.Blink
}

func (c *Composer) Update(msg tea.Msg) (*Composer, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		if c.waiting {
			return c, nil
		}
		switch {
		case key.Matches(km, c.keys.Prev):
			c.step(-1)
			return c, nil
		case key.Matches(km, c.keys.Next):
			c.step(1)
			return c, nil
		}
	}
	var cmd tea.Cmd
	c.field, cmd = c.field.Update(msg)
	return c, cmd
}

// step moves through the sent turns; past the newest one the field is empty.
func (c *Composer) step(delta int) {
	if len(c.sent) == 0 {
		return
	}
	c.recall = min(max(c.recall+delta, 0), len(c.sent))
	if c.recall == len(c.sent) {
		c.field.Reset()
		return
	}
	c.field.SetValue(c.sent[c.recall])
	c.field.CursorEnd()
}

// Take returns the trimmed text and clears the field. Non-empty text is
// remembered for recall, skipping an immediate repeat.
func (c *Composer) Take() string {
	text := strings.TrimSpace(c.field.Value())
	c.field.Reset()
	if text != "" && (len(c.sent) == 0 || c.sent[len(c.sent)-1] != text) {
		c.sent = append(c.sent, text)
	}
	c.recall = len(c.sent)
	return text
}

// SetWaiting locks the field while a turn is in flight.
func (c *Composer) SetWaiting(waiting bool) {
	c.waiting = waiting
	if waiting {
		c.field.Placeholder = waitingPlaceholder
		c.field.Blur()
		return
	}
	c.field.Placeholder = idlePlaceholder
	c.field.Focus()
}

func (c *Composer) View() string {
	style := ComposerStyle
	if c.waiting {
		style = ComposerBusyStyle
	}
	return style.Render(c.field.View())
}

func (c *Composer) Value() string {
	return c.field.Value()
}

func (c *Composer) SetValue(value string) {
	c.field.SetValue(value)
}
