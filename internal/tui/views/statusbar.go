package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the status bar shows on each redraw.
type StatusInfo struct {
	LastAttempt  time.Time
	LastSuccess  time.Time
	PollInterval time.Duration
	Degraded     bool
	LogCount     int
	RecentCount  int
	Backend      string
}

type Status struct {
	Width     int
	Info      StatusInfo
	StartTime time.Time
	now       func() time.Time
}

func NewStatus(width int) *Status {
	return &Status{Width: width, StartTime: time.Now(), now: time.Now}
}

func (s *Status) Update(info StatusInfo) { s.Info = info }

func (s *Status) Render() string {
	green := lipgloss.NewStyle().Foreground(colorPrimary)
	amber := lipgloss.NewStyle().Foreground(colorAmber)
	red := lipgloss.NewStyle().Foreground(colorRed)
	muted := lipgloss.NewStyle().Foreground(colorMuted)
	border := lipgloss.NewStyle().Foreground(colorBorder)

	feed := green.Render("LIVE")
	if s.Info.Degraded {
		feed = red.Bold(true).Render("DEGRADED")
	}

	last := "never"
	if !s.Info.LastSuccess.IsZero() {
		last = fmtAge(s.now().Sub(s.Info.LastSuccess)) + " ago"
	}
	lastStyle := green
	if s.Info.LastSuccess.IsZero() || s.stale() {
		lastStyle = amber
	}

	items := []string{
		s.heartbeat(),
		muted.Render("FEED:") + " " + feed,
		muted.Render("SYNC:") + " " + lastStyle.Render(last),
		muted.Render("LOGS:") + " " + green.Render(fmt.Sprintf("%d", s.Info.LogCount)),
		muted.Render("SEEN:") + " " + green.Render(fmt.Sprintf("%d", s.Info.RecentCount)),
		muted.Render("UP:") + " " + green.Render(fmtUptime(s.now().Sub(s.StartTime).Round(time.Second))),
	}
	if s.Info.Backend != "" {
		items = append(items, muted.Render("API:")+" "+muted.Render(s.Info.Backend))
	}

	return lipgloss.NewStyle().
		Width(s.Width).
		Padding(0, 1).
		Background(colorBarBg).
		Render(strings.Join(items, border.Render(" │ ")))
}

func (s *Status) stale() bool {
	interval := s.Info.PollInterval
	if interval <= 0 {
		return false
	}
	return s.now().Sub(s.Info.LastSuccess) > 3*interval
}

// heartbeat pulses on each poll attempt and fades as the next one is due.
func (s *Status) heartbeat() string {
	active := lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	dimmed := lipgloss.NewStyle().Foreground(colorPrimaryDim)
	warn := lipgloss.NewStyle().Foreground(colorAmber)
	crit := lipgloss.NewStyle().Foreground(colorRed)

	interval := s.Info.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}

	var icon string
	var style lipgloss.Style
	if s.Info.LastAttempt.IsZero() {
		icon, style = "○", warn
	} else {
		elapsed := s.now().Sub(s.Info.LastAttempt)
		switch {
		case elapsed < 500*time.Millisecond:
			icon, style = "●", active
		case elapsed < interval+interval/2:
			icon, style = "●", dimmed
		case elapsed < 3*interval:
			icon, style = "○", warn
		default:
			icon, style = "○", crit
		}
	}

	return lipgloss.NewStyle().Foreground(colorMuted).Render("POLL:") + " " + style.Render(icon)
}

func fmtAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "<1s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func fmtUptime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm%02ds", m, sec)
}
