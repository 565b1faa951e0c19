package tui

import "github.com/charmbracelet/lipgloss"

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

// Title renders a section heading for CLI output.
func Title(s string) string { return cyan.Bold(true).Render(s) }

func Label(s string) string { return dim.Render(s) }

func Value(s string) string { return white.Render(s) }

func Good(s string) string { return green.Render(s) }

func Warn(s string) string { return yellow.Render(s) }

func Bad(s string) string { return red.Render(s) }

func Rule(width int) string {
	if width < 1 {
		width = 1
	}
	b := make([]rune, width)
	for i := range b {
		b[i] = '─'
	}
	return dimmer.Render(string(b))
}
