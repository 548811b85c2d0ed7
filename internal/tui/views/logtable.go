package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/idswatch/internal/domain"
	"github.com/xoelrdgz/idswatch/pkg/termsafe"
)

// LogTable lists historical entries newest first with a movable selection.
type LogTable struct {
	Entries       []domain.LogEntry
	Loading       bool
	VisibleCount  int
	ScrollPos     int
	Width         int
	SelectedIndex int
}

func NewLogTable(visibleCount int) *LogTable {
	return &LogTable{
		VisibleCount: visibleCount,
		Width:        100,
	}
}

// Update swaps in a new list, keeping the selection on the same entry id
// when it is still present.
func (t *LogTable) Update(entries []domain.LogEntry, loading bool) {
	var selectedID domain.EventID
	if sel := t.Selected(); sel != nil {
		selectedID = sel.ID
	}

	t.Entries = entries
	t.Loading = loading
	t.SelectedIndex = 0
	if selectedID != "" {
		for i := range entries {
			if entries[i].ID == selectedID {
				t.SelectedIndex = i
				break
			}
		}
	}
	t.ensureSelectionVisible()
}

func (t *LogTable) ScrollUp() {
	if t.SelectedIndex > 0 {
		t.SelectedIndex--
	}
	t.ensureSelectionVisible()
}

func (t *LogTable) ScrollDown() {
	if t.SelectedIndex < len(t.Entries)-1 {
		t.SelectedIndex++
	}
	t.ensureSelectionVisible()
}

func (t *LogTable) ensureSelectionVisible() {
	if t.VisibleCount <= 0 || len(t.Entries) <= t.VisibleCount {
		t.ScrollPos = 0
		return
	}
	if t.SelectedIndex < t.ScrollPos {
		t.ScrollPos = t.SelectedIndex
	}
	if t.SelectedIndex >= t.ScrollPos+t.VisibleCount {
		t.ScrollPos = t.SelectedIndex - t.VisibleCount + 1
	}
	if maxScroll := len(t.Entries) - t.VisibleCount; t.ScrollPos > maxScroll {
		t.ScrollPos = maxScroll
	}
}

func (t *LogTable) Selected() *domain.LogEntry {
	if t.SelectedIndex >= 0 && t.SelectedIndex < len(t.Entries) {
		e := t.Entries[t.SelectedIndex]
		return &e
	}
	return nil
}

func (t *LogTable) Render() string {
	dim := lipgloss.NewStyle().Foreground(colorDim)
	muted := lipgloss.NewStyle().Foreground(colorMuted)
	text := lipgloss.NewStyle().Foreground(colorText)
	green := lipgloss.NewStyle().Foreground(colorPrimary)
	selected := lipgloss.NewStyle().Background(colorSelectBg).Foreground(colorPrimary)

	if len(t.Entries) == 0 {
		if t.Loading {
			return muted.Italic(true).Render("  Loading historical logs...")
		}
		return dim.Italic(true).Render("  No historical logs")
	}

	var lines []string
	lines = append(lines, muted.Bold(true).Render(
		fmt.Sprintf("  %-8s  %-3s  %-15s  %-16s  %s", "TIME", "SEV", "SOURCE", "TYPE", "DETAILS")))
	lines = append(lines, dim.Render("  "+strings.Repeat("─", max(t.Width-4, 10))))

	start, end := t.window()
	for i := start; i < end; i++ {
		e := t.Entries[i]
		isSelected := i == t.SelectedIndex

		prefix := "  "
		timeStyle := dim
		srcStyle := text
		if isSelected {
			prefix = "▶ "
			timeStyle = selected
			srcStyle = selected.Bold(true)
		}

		details := termsafe.String(e.DetailsOr("-"), max(t.Width-58, 10))

		lines = append(lines, fmt.Sprintf("%s%s  %s  %s  %s  %s",
			prefix,
			timeStyle.Render(fmtStamp(e.Timestamp, "15:04:05")),
			SeverityStyle(e.Severity).Render(severityTag(e.Severity)),
			srcStyle.Render(termsafe.Pad(termsafe.IP(e.SourceString()), 15)),
			green.Render(termsafe.Pad(e.Type, 16)),
			muted.Render(details),
		))
	}

	if t.Loading {
		lines = append(lines, muted.Italic(true).Render("  refreshing..."))
	} else if len(t.Entries) > t.VisibleCount && t.VisibleCount > 0 {
		lines = append(lines, dim.Render(fmt.Sprintf("  [%d-%d of %d]", start+1, end, len(t.Entries))))
	}

	return strings.Join(lines, "\n")
}

func (t *LogTable) window() (int, int) {
	if t.VisibleCount <= 0 || len(t.Entries) <= t.VisibleCount {
		return 0, len(t.Entries)
	}
	start := t.ScrollPos
	end := start + t.VisibleCount
	if end > len(t.Entries) {
		end = len(t.Entries)
	}
	return start, end
}
