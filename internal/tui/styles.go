package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary    = lipgloss.Color("#00ff41")
	ColorPrimaryDim = lipgloss.Color("#00aa2a")
	ColorAmber      = lipgloss.Color("#ffb000")
	ColorRed        = lipgloss.Color("#ff3333")
	ColorText       = lipgloss.Color("#e5e5e5")
	ColorMuted      = lipgloss.Color("#707070")
	ColorDim        = lipgloss.Color("#404040")
)

var (
	TextPrimary    = lipgloss.NewStyle().Foreground(ColorPrimary)
	TextPrimaryDim = lipgloss.NewStyle().Foreground(ColorPrimaryDim)
	TextAmber      = lipgloss.NewStyle().Foreground(ColorAmber)
	TextRed        = lipgloss.NewStyle().Foreground(ColorRed)
	TextMuted      = lipgloss.NewStyle().Foreground(ColorMuted)
	TextDim        = lipgloss.NewStyle().Foreground(ColorDim)
)
