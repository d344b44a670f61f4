// Package theme holds the console styles of the diagnostic commands.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for section titles.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// PanelStyle frames a parsed record or a rendered alert.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// LabelStyle is the left column of key/value lines.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(12)

// HelpStyle is used for hints.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorYellow)
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
)

// OK renders a passed check.
func OK(text string) string { return okStyle.Render("✔ ") + text }

// Warn renders a check that passed with a caveat.
func Warn(text string) string { return warnStyle.Render("! ") + text }

// Fail renders a failed check.
func Fail(text string) string { return failStyle.Render("✘ ") + text }

// Field renders one "label  value" line. Empty values show as a dash.
func Field(label, value string) string {
	if strings.TrimSpace(value) == "" {
		value = HelpStyle.Render("-")
	}
	return LabelStyle.Render(label) + value
}

// Panel joins lines and frames them.
func Panel(lines ...string) string {
	return PanelStyle.Render(strings.Join(lines, "\n"))
}
