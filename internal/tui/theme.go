package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/geocoder89/tasktracker/internal/domain/task"
)

// Styles uses ANSI 256 colors for broad terminal support.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Selected lipgloss.Style
	Row      lipgloss.Style
	Faint    lipgloss.Style
	Banner   lipgloss.Style
	Modal    lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Help     lipgloss.Style

	statusColors map[task.Status]lipgloss.Color
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("61")),
		Row:      lipgloss.NewStyle(),
		Faint:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("160")).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("160")).
			PaddingLeft(1),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Focused: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),

		statusColors: map[task.Status]lipgloss.Color{
			task.StatusTodo:       lipgloss.Color("178"),
			task.StatusInProgress: lipgloss.Color("33"),
			task.StatusTesting:    lipgloss.Color("135"),
			task.StatusCompleted:  lipgloss.Color("34"),
		},
	}
}

func (s Styles) badge(st task.Status) string {
	color, ok := s.statusColors[st]
	if !ok {
		color = lipgloss.Color("245")
	}
	return lipgloss.NewStyle().Foreground(color).Width(11).Render(statusLabel(st))
}

func statusLabel(st task.Status) string {
	switch st {
	case task.StatusTodo:
		return "To Do"
	case task.StatusInProgress:
		return "In Progress"
	case task.StatusTesting:
		return "Testing"
	case task.StatusCompleted:
		return "Completed"
	default:
		return string(st)
	}
}
