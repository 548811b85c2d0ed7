package views

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/idswatch/internal/domain"
	"github.com/xoelrdgz/idswatch/pkg/termsafe"
)

// Inspector is a full-screen view of one alert or log entry.
type Inspector struct {
	Event   *domain.Event
	Title   string
	Width   int
	Height  int
	ScrollY int
	Visible bool
}

func NewInspector() *Inspector {
	return &Inspector{
		Width:  80,
		Height: 24,
	}
}

func (p *Inspector) Open(title string, ev *domain.Event) {
	p.Event = ev
	p.Title = title
	p.ScrollY = 0
	p.Visible = ev != nil
}

func (p *Inspector) SetDimensions(width, height int) {
	p.Width = width
	p.Height = height
}

func (p *Inspector) ScrollUp() {
	if p.ScrollY > 0 {
		p.ScrollY--
	}
}

func (p *Inspector) ScrollDown() {
	p.ScrollY++
}

func (p *Inspector) Close() {
	p.Event = nil
	p.Visible = false
}

func (p *Inspector) Render() string {
	if p.Event == nil {
		return ""
	}

	ev := p.Event
	contentWidth := max(p.Width-4, 20)

	header := lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	label := lipgloss.NewStyle().Foreground(colorAmber).Width(12)
	value := lipgloss.NewStyle().Foreground(colorText)
	dimText := lipgloss.NewStyle().Foreground(colorDim)
	codeBlock := lipgloss.NewStyle().Foreground(colorPrimary).Background(colorCodeBg)

	var lines []string
	lines = append(lines, header.Render("╔═══ "+strings.ToUpper(p.Title)+" ═══╗"))
	lines = append(lines, dimText.Render(strings.Repeat("─", contentWidth)))

	field := func(name, v string, style lipgloss.Style) {
		lines = append(lines, fmt.Sprintf("%s %s", label.Render(name), style.Render(v)))
	}
	field("ID:", termsafe.String(string(ev.ID), contentWidth-13), value)
	field("Timestamp:", fmtStamp(ev.Timestamp, "2006-01-02 15:04:05.000 MST"), value)
	field("Severity:", ev.Severity.Label(), SeverityStyle(ev.Severity))
	field("Type:", termsafe.String(ev.Type, contentWidth-13), value)
	field("Source:", termsafe.IP(ev.SourceString()), value)

	lines = append(lines, "")
	lines = append(lines, header.Render("▶ DETAILS"))
	details := termsafe.Clean(ev.DetailsOr("No details provided"))
	for _, chunk := range wrap(details, contentWidth) {
		lines = append(lines, value.Render(chunk))
	}

	if raw, err := ev.ToJSON(); err == nil {
		var pretty bytes.Buffer
		if json.Indent(&pretty, raw, "", "  ") == nil {
			lines = append(lines, "")
			lines = append(lines, dimText.Render(strings.Repeat("─", contentWidth)))
			lines = append(lines, header.Render("▶ RAW"))
			for _, line := range strings.Split(pretty.String(), "\n") {
				lines = append(lines, codeBlock.Render(termsafe.String(line, contentWidth)))
			}
		}
	}

	lines = append(lines, "")
	lines = append(lines, dimText.Render(strings.Repeat("─", contentWidth)))
	lines = append(lines, dimText.Render("[ESC] Close   [↑/↓] Scroll"))

	if p.ScrollY >= len(lines) {
		p.ScrollY = len(lines) - 1
	}
	if p.ScrollY > 0 {
		lines = lines[p.ScrollY:]
	}
	if p.Height > 2 && len(lines) > p.Height-2 {
		lines = lines[:p.Height-2]
	}

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(colorPrimary).
		Padding(0, 1).
		Width(p.Width).
		Render(strings.Join(lines, "\n"))
}

// wrap splits s into rune chunks of at most width.
func wrap(s string, width int) []string {
	r := []rune(s)
	if len(r) <= width {
		return []string{s}
	}
	var out []string
	for len(r) > width {
		out = append(out, string(r[:width]))
		r = r[width:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}
