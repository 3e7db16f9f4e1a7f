// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by every command.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorHighlight = lipgloss.Color("#3B82F6")
)

// styles are bound to the App's renderer so they follow the output's color
// profile and the configured color scheme.
type styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Cmd      lipgloss.Style
	Label    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		Title:    r.NewStyle().Bold(true).Foreground(ColorPrimary),
		Subtitle: r.NewStyle().Foreground(ColorMuted),
		Success:  r.NewStyle().Foreground(ColorSuccess),
		Error:    r.NewStyle().Bold(true).Foreground(ColorError),
		Warning:  r.NewStyle().Foreground(ColorWarning),
		Cmd:      r.NewStyle().Foreground(ColorHighlight),
		Label:    r.NewStyle().Bold(true).Foreground(ColorWarning),
	}
}

// Help text styles, rendered for the terminal the binary starts in.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	subtitleStyle = lipgloss.NewStyle().Foreground(ColorMuted)
)
