package common

import "github.com/charmbracelet/lipgloss"

const (
	COLOR_GREY      = "241"
	COLOR_MAGENTA   = "170"
	COLOR_LIGHTBLUE = "69"
	COLOR_PURPLE    = "#7D56F4"
	COLOR_RED       = "196"
	COLOR_GREEN     = "78"
)

var (
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREY)).Padding(0, 2)
	CaptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_MAGENTA)).Padding(2)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_RED)).Padding(0, 2)
	NoticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREEN)).Padding(0, 2)
	UnreadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_LIGHTBLUE)).Bold(true)
)

func DefaultWindowWidth(width int) int {
	return width - 10
}

func DefaultWindowHeight(heigth int) int {
	return heigth - 10
}

func DefaultComposeWidth(width int) int {
	return width / 4
}

func DefaultListWidth(width int) int {
	return width - DefaultComposeWidth(width)
}
