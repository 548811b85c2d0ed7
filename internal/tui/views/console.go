package views

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/idswatch/internal/domain"
	"github.com/xoelrdgz/idswatch/pkg/termsafe"
)

// RenderConsole draws the operations line: the scan button and the outcome
// of the last scan.
func RenderConsole(scan domain.ScanState, width int) string {
	key := lipgloss.NewStyle().Foreground(colorPrimaryDim)
	dim := lipgloss.NewStyle().Foreground(colorDim)
	muted := lipgloss.NewStyle().Foreground(colorMuted)

	button := key.Render("[S]") + " " + lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Render("TRIGGER SCAN")
	if scan.InProgress() {
		button = dim.Render("[S] TRIGGER SCAN")
	}

	var status lipgloss.Style
	switch scan.Phase {
	case domain.ScanScanning:
		status = lipgloss.NewStyle().Foreground(colorAmber).Bold(true)
	case domain.ScanFailed:
		status = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	case domain.ScanCompleted:
		status = lipgloss.NewStyle().Foreground(colorPrimary)
	default:
		status = muted
	}

	msg := termsafe.String(scan.Describe(), max(width-24, 10))
	return "  " + button + dim.Render("  │  ") + status.Render(msg)
}

// RenderBanner draws the last sync error, or nothing.
func RenderBanner(err *domain.SyncError, width int) string {
	if err == nil {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color("#992020")).
		Bold(true).
		Width(max(width, 20)).
		Padding(0, 1).
		Render("⚠ " + termsafe.String(err.Message, max(width-4, 10)))
}
