package panel

import "github.com/charmbracelet/lipgloss"

var (
	brandColor  = lipgloss.Color("#F55F3E")
	accentColor = lipgloss.Color("#5B8DEF")
	mutedColor  = lipgloss.Color("#888888")
	borderColor = lipgloss.Color("#444444")

	buttonStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1)

	// The active button keeps the row's shape and gets a brand underline.
	buttonActiveStyle = buttonStyle.
		BorderBottomForeground(brandColor).
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true).
		Underline(true)

	toolbarCanvasStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Padding(0, 1)

	toolbarActiveStyle = toolbarCanvasStyle.
		Background(lipgloss.Color("#2F3A4F")).
		Foreground(lipgloss.Color("#FFFFFF")).
		BorderForeground(accentColor).
		Bold(true)

	overflowMenuStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor)

	selectBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1)

	optionStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).PaddingLeft(2)
	optionCursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	optionSelectedStyle = lipgloss.NewStyle().Foreground(accentColor)
	placeholderStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	hintStyle           = lipgloss.NewStyle().Foreground(mutedColor)
)
