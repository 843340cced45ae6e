package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const maxEvents = 200

type Event struct {
	At      time.Time
	Type    string
	Message string
}

// Activity lists what each turn did.
type Activity struct {
	viewport viewport.Model
	events   []Event
}

func NewActivity() *Activity {
	vp := viewport.New(0, 0)
	vp.SetContent("Turn activity\n")
	return &Activity{
		viewport: vp,
		events:   []Event{},
	}
}

func (a *Activity) Init() tea.Cmd {
	return nil
}

func (a *Activity) Update(msg tea.Msg) (*Activity, tea.Cmd) {
	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *Activity) View(width, height int) string {
	a.viewport.Width = width - 2
	a.viewport.Height = height - 2
	return ActivityPanelStyle.Width(width).Height(height).Render(a.viewport.View())
}

func (a *Activity) AddEvent(eventType, message string) {
	a.events = append(a.events, Event{At: time.Now(), Type: eventType, Message: message})
	if len(a.events) > maxEvents {
		a.events = a.events[len(a.events)-maxEvents:]
	}
	a.updateContent()
}

// Events returns the logged events.
func (a *Activity) Events() []Event {
	return a.events
}

func (a *Activity) updateContent() {
	var sb strings.Builder
	for _, event := range a.events {
		style := EventStyle
		if event.Type == "error" {
			style = ErrorStyle
		}
		sb.WriteString(style.Render(fmt.Sprintf("%s [%s] %s", event.At.Format("15:04:05"), event.Type, event.Message)))
		sb.WriteString("\n")
	}
	a.viewport.SetContent(sb.String())
}
