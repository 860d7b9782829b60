package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/muurk/autoprint/internal/indicator"
)

// Color palette for the kiosk screen
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - idle border
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success flash
	ErrorColor   = lipgloss.Color("#FF5555") // Red - error flash
	TickColor    = lipgloss.Color("#FFA500") // Orange - key click
	MutedColor   = lipgloss.Color("#626262") // Gray - footer, help
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinScreenWidth     = 24 // Narrowest usable screen
	DefaultScreenWidth = 40 // Width of the simulated display
	DefaultBodyLines   = 3  // Body rows reserved inside the box
)

var (
	// TitleStyle is the first display line
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	// BodyStyle is the main display area
	BodyStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Height(DefaultBodyLines)

	// FooterStyle is the status line
	FooterStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// HelpStyle wraps the key binding help below the screen
	HelpStyle = lipgloss.NewStyle().
			PaddingLeft(1)
)

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return DefaultScreenWidth + 4, 24
	}
	return width, height
}

// ScreenWidth returns the box width for a terminal of the given width
func ScreenWidth(termWidth int) int {
	w := termWidth - 4
	if w > DefaultScreenWidth {
		w = DefaultScreenWidth
	}
	if w < MinScreenWidth {
		w = MinScreenWidth
	}
	return w
}

// BorderColor returns the border colour while an indicator event is shown
func BorderColor(e indicator.Event, flashing bool) lipgloss.Color {
	if !flashing {
		return PrimaryColor
	}
	switch e {
	case indicator.Success:
		return SuccessColor
	case indicator.Error:
		return ErrorColor
	default:
		return TickColor
	}
}

// ScreenStyle returns the box drawn around the simulated display
func ScreenStyle(width int, border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(width).
		Padding(0, 1)
}
