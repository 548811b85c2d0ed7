package views

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

var (
	colorPrimary    = lipgloss.Color("#00ff41")
	colorPrimaryDim = lipgloss.Color("#00aa2a")
	colorAmber      = lipgloss.Color("#ffb000")
	colorRed        = lipgloss.Color("#ff3333")
	colorCyan       = lipgloss.Color("#00b8ff")
	colorText       = lipgloss.Color("#e5e5e5")
	colorMuted      = lipgloss.Color("#707070")
	colorDim        = lipgloss.Color("#404040")
	colorBorder     = lipgloss.Color("#2a2a2a")
	colorSelectBg   = lipgloss.Color("#003300")
	colorCodeBg     = lipgloss.Color("#0a1f0a")
	colorBarBg      = lipgloss.Color("#0a0a0a")
)

// SeverityStyle colours a severity the same way in every view.
func SeverityStyle(sev domain.Severity) lipgloss.Style {
	switch sev {
	case domain.SeverityCritical:
		return lipgloss.NewStyle().Foreground(colorRed).Bold(true).Blink(true)
	case domain.SeverityHigh:
		return lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	case domain.SeverityMedium:
		return lipgloss.NewStyle().Foreground(colorAmber).Bold(true)
	case domain.SeverityLow:
		return lipgloss.NewStyle().Foreground(colorCyan)
	default:
		return lipgloss.NewStyle().Foreground(colorMuted)
	}
}

// severityTag is the three-letter column form of a severity.
func severityTag(sev domain.Severity) string {
	switch sev {
	case domain.SeverityCritical:
		return "CRT"
	case domain.SeverityHigh:
		return "HIG"
	case domain.SeverityMedium:
		return "MED"
	case domain.SeverityLow:
		return "LOW"
	default:
		return "UNK"
	}
}

func fmtStamp(ts domain.Timestamp, layout string) string {
	if ts.IsZero() {
		if layout == "15:04:05" {
			return "--:--:--"
		}
		return "unknown"
	}
	return ts.Local().Format(layout)
}
