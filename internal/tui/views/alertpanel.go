package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/idswatch/internal/domain"
	"github.com/xoelrdgz/idswatch/pkg/termsafe"
)

// AlertPanel shows the held latest alert, or the quiet/loading placeholder.
type AlertPanel struct {
	Width int
}

func NewAlertPanel(width int) *AlertPanel { return &AlertPanel{Width: width} }

func (p *AlertPanel) Render(state domain.DashboardState) string {
	muted := lipgloss.NewStyle().Foreground(colorMuted)
	green := lipgloss.NewStyle().Foreground(colorPrimary)
	text := lipgloss.NewStyle().Foreground(colorText)

	width := max(p.Width-4, 20)
	box := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width)

	alert := state.LatestAlert
	switch {
	case alert == nil && state.AlertLoading:
		return box.Render(muted.Italic(true).Render("Awaiting first poll..."))
	case alert == nil:
		return box.Render(green.Render("● " + domain.MsgNoAlertAvailable))
	}

	sev := SeverityStyle(alert.Severity)
	if alert.Severity.Rank() >= domain.SeverityHigh.Rank() {
		box = box.Border(lipgloss.DoubleBorder()).BorderForeground(colorRed)
	} else if alert.Severity == domain.SeverityMedium {
		box = box.BorderForeground(colorAmber)
	}

	inner := width - 4
	badge := sev.Reverse(true).Render(" " + alert.Severity.Label() + " ")
	title := text.Bold(true).Render(termsafe.String(alert.Type, inner-16))

	lines := []string{
		badge + "  " + title,
		fmt.Sprintf("%s %s   %s %s   %s %s",
			muted.Render("ID"), text.Render(termsafe.String(string(alert.ID), 16)),
			muted.Render("SRC"), text.Render(termsafe.IP(alert.SourceString())),
			muted.Render("AT"), text.Render(fmtStamp(alert.Timestamp, "2006-01-02 15:04:05"))),
		muted.Render(termsafe.String(alert.DetailsOr("No details provided"), inner)),
	}
	return box.Render(strings.Join(lines, "\n"))
}
