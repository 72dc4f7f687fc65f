package theme

import "github.com/charmbracelet/lipgloss"

// Color palette — cool blues over a dark terminal, warnings in amber.
var (
	ColorPrimary   = lipgloss.Color("39")  // Blue
	ColorSecondary = lipgloss.Color("244") // Gray
	ColorSuccess   = lipgloss.Color("78")  // Teal green
	ColorError     = lipgloss.Color("203") // Soft red
	ColorWarning   = lipgloss.Color("214") // Amber
	ColorBorder    = lipgloss.Color("240") // Dark gray
	ColorMuted     = lipgloss.Color("246") // Light gray
	ColorHighlight = lipgloss.Color("221") // Pale amber
)

// Shared styles used across TUI components.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleActiveBorder = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("251")).
			Padding(0, 1)
)
