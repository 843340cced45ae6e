package tui

import "github.com/charmbracelet/lipgloss"

var (
	teal     = lipgloss.Color("#0d7377")
	offWhite = lipgloss.Color("#f8f7f4")
	darkGray = lipgloss.Color("#333333")
	red      = lipgloss.Color("#ff5f5f")
	amber    = lipgloss.Color("#e5a50a")
	muted    = lipgloss.Color("#8a8a8a")
)

func panel() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(teal).
		Padding(1)
}

var (
	AppStyle = lipgloss.NewStyle().
			Background(darkGray).
			Foreground(offWhite)

	StatusBarStyle = lipgloss.NewStyle().
			Background(teal).
			Foreground(offWhite).
			Bold(true).
			Padding(0, 1)

	ChatPanelStyle     = panel()
	ActivityPanelStyle = panel()

	// DraftPanelStyle frames the project draft; the pending variant marks a
	// summary that is waiting for a yes or no.
	DraftPanelStyle        = panel()
	DraftPendingPanelStyle = panel().BorderForeground(amber)

	ComposerStyle     = panel().Padding(0, 1)
	ComposerBusyStyle = panel().Padding(0, 1).BorderForeground(muted).Foreground(muted)

	EventStyle = lipgloss.NewStyle().Foreground(offWhite)
	ErrorStyle = lipgloss.NewStyle().Foreground(red)
)

var roleStyles = map[string]lipgloss.Style{
	RoleUser:      lipgloss.NewStyle().Foreground(offWhite).Bold(true),
	RoleAssistant: lipgloss.NewStyle().Foreground(teal),
	RoleSystem:    lipgloss.NewStyle().Foreground(muted).Italic(true),
	RoleError:     ErrorStyle,
}

// roleStyle picks the transcript style for a speaker.
func roleStyle(role string) lipgloss.Style {
	if s, ok := roleStyles[role]; ok {
		return s
	}
	return roleStyles[RoleAssistant]
}
