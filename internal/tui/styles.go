package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Muted style for secondary text
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Subtle style for hints and partial captions
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	StyleHighlight = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	// Box style for bordered containers
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)

	// FeedbackBox frames the latest grading result
	StyleFeedbackBox = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary).
				Padding(0, 1)
)

const logoASCII = `
                       _                              
 _ __ ___   ___   ___| | ___ __ ___   ___  _ __ ___  
| '_ ` + "`" + ` _ \ / _ \ / __| |/ / '__/ _ \ / _ \| '_ ` + "`" + ` _ \ 
| | | | | | (_) | (__|   <| | | (_) | (_) | | | | | |
|_| |_| |_|\___/ \___|_|\_\_|  \___/ \___/|_| |_| |_|`

// Logo returns the mockroom ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
