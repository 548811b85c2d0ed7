package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/idswatch/internal/domain"
	"github.com/xoelrdgz/idswatch/pkg/termsafe"
)

type SourceEntry struct {
	Source   string
	Hits     int
	Flagged  int
	Worst    domain.Severity
	LastSeen time.Time
	Types    []string
}

// TopSources ranks the sources that appear in the historical log list.
type TopSources struct {
	Sources      []SourceEntry
	Width        int
	VisibleCount int
}

func NewTopSources(width int) *TopSources {
	return &TopSources{Width: width, VisibleCount: 20}
}

func (v *TopSources) Update(sources []SourceEntry) { v.Sources = sources }

func (v *TopSources) Render() string {
	green := lipgloss.NewStyle().Foreground(colorPrimary)
	greenDim := lipgloss.NewStyle().Foreground(colorPrimaryDim)
	amber := lipgloss.NewStyle().Foreground(colorAmber)
	red := lipgloss.NewStyle().Foreground(colorRed)
	dim := lipgloss.NewStyle().Foreground(colorDim)
	muted := lipgloss.NewStyle().Foreground(colorMuted)
	text := lipgloss.NewStyle().Foreground(colorText)

	if len(v.Sources) == 0 {
		return dim.Italic(true).Render("  No sources in the log history")
	}

	var lines []string
	lines = append(lines, muted.Bold(true).Render(fmt.Sprintf(" %-3s %-17s %-13s %-5s %-9s %s",
		"#", "SOURCE", "HITS", "FLAG", "LAST", "TYPES")))
	lines = append(lines, dim.Render(strings.Repeat("─", max(v.Width, 10))))

	maxHits := 0
	for _, s := range v.Sources {
		if s.Hits > maxHits {
			maxHits = s.Hits
		}
	}

	visible := v.Sources
	if v.VisibleCount > 0 && len(visible) > v.VisibleCount {
		visible = visible[:v.VisibleCount]
	}

	for i, s := range visible {
		style := greenDim
		switch {
		case s.Worst.Rank() >= domain.SeverityHigh.Rank():
			style = red.Bold(true)
		case s.Worst == domain.SeverityMedium:
			style = amber.Bold(true)
		case s.Flagged > 0:
			style = green
		}

		const barWidth = 6
		fill := 0
		if maxHits > 0 {
			fill = s.Hits * barWidth / maxHits
		}
		bar := strings.Repeat("█", fill) + strings.Repeat("░", barWidth-fill)

		last := "-"
		if !s.LastSeen.IsZero() {
			last = s.LastSeen.Local().Format("15:04:05")
		}

		types := make([]string, 0, len(s.Types))
		for _, t := range s.Types {
			types = append(types, termsafe.Clean(t))
		}

		lines = append(lines, fmt.Sprintf(" %s %s %s %s %s %s",
			muted.Render(fmt.Sprintf("%2d.", i+1)),
			style.Render(termsafe.Pad(termsafe.IP(s.Source), 17)),
			style.Render(fmt.Sprintf("%s %6d", bar, s.Hits)),
			SeverityStyle(s.Worst).Render(fmt.Sprintf("%-5d", s.Flagged)),
			muted.Render(fmt.Sprintf("%-9s", last)),
			text.Render(termsafe.Truncate(strings.Join(types, ", "), max(v.Width-58, 10))),
		))
	}

	if v.VisibleCount > 0 && len(v.Sources) > v.VisibleCount {
		lines = append(lines, dim.Render(fmt.Sprintf("  [showing %d of %d sources]", v.VisibleCount, len(v.Sources))))
	}

	return strings.Join(lines, "\n")
}
