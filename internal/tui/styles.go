package tui

import "github.com/charmbracelet/lipgloss"

// Navbar colors per theme name.
var themeColors = map[string]lipgloss.Color{
	"link":    lipgloss.Color("#485FC7"),
	"primary": lipgloss.Color("#00D1B2"),
	"info":    lipgloss.Color("#3E8ED0"),
	"success": lipgloss.Color("#48C78E"),
	"warning": lipgloss.Color("#FFE08A"),
	"danger":  lipgloss.Color("#F14668"),
	"dark":    lipgloss.Color("#363636"),
}

var (
	ColorWhite = lipgloss.Color("#FFFFFF")
	ColorGray  = lipgloss.Color("#7A7A7A")
	ColorLight = lipgloss.Color("#F5F5F5")
	ColorDark  = lipgloss.Color("#363636")
	ColorTeal  = lipgloss.Color("#00D1B2")
)

var (
	primaryButtonStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorWhite).
				Background(ColorTeal).
				Padding(0, 1)

	lightButtonStyle = lipgloss.NewStyle().
				Foreground(ColorDark).
				Background(ColorLight).
				Padding(0, 1)

	heroTitleStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1).
			MarginBottom(1)

	mutedStyle = lipgloss.NewStyle().Foreground(ColorGray)

	contentStyle = lipgloss.NewStyle().Padding(1, 2)
)

// navbarStyle returns the bar style for theme, falling back to "link".
func navbarStyle(theme string, width int) lipgloss.Style {
	bg, ok := themeColors[theme]
	if !ok {
		bg = themeColors["link"]
	}
	return lipgloss.NewStyle().
		Foreground(ColorWhite).
		Background(bg).
		Width(width)
}
