package tui

import (
	"container/heap"
	"time"

	"github.com/xoelrdgz/idswatch/internal/domain"
	"github.com/xoelrdgz/idswatch/internal/tui/views"
)

const (
	ViewLogs = iota
	ViewSources
	viewCount
)

// Model is the dashboard's render state: the latest controller snapshot
// plus purely local view settings.
type Model struct {
	Width  int
	Height int

	ActiveView int
	State      domain.DashboardState

	MaxTopSources int
	maxTypes      int
}

func NewModel() *Model {
	return &Model{
		Width:         120,
		Height:        40,
		State:         domain.NewDashboardState(),
		MaxTopSources: 25,
		maxTypes:      4,
	}
}

func (m *Model) SetState(s domain.DashboardState) { m.State = s }

func (m *Model) SetDimensions(width, height int) {
	m.Width = width
	m.Height = height
}

func (m *Model) NextView() {
	m.ActiveView = (m.ActiveView + 1) % viewCount
}

type sourceItem struct {
	entry     views.SourceEntry
	heapIndex int
}

type sourceMaxHeap []*sourceItem

func (h sourceMaxHeap) Len() int { return len(h) }
func (h sourceMaxHeap) Less(i, j int) bool {
	a, b := h[i].entry, h[j].entry
	if a.Flagged != b.Flagged {
		return a.Flagged > b.Flagged
	}
	if a.Hits != b.Hits {
		return a.Hits > b.Hits
	}
	return a.Source < b.Source
}
func (h sourceMaxHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *sourceMaxHeap) Push(x any) {
	item := x.(*sourceItem)
	item.heapIndex = len(*h)
	*h = append(*h, item)
}

func (h *sourceMaxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.heapIndex = -1
	*h = old[:n-1]
	return item
}

// TopSources aggregates the log list by source. Sources with more non-normal
// entries rank first, then by total entries.
func (m *Model) TopSources() []views.SourceEntry {
	bySource := make(map[string]*sourceItem)
	for _, e := range m.State.Logs {
		src := e.SourceString()
		item, ok := bySource[src]
		if !ok {
			item = &sourceItem{entry: views.SourceEntry{Source: src, Worst: domain.SeverityUnknown}}
			bySource[src] = item
		}
		observe(&item.entry, e, m.maxTypes)
	}

	h := make(sourceMaxHeap, 0, len(bySource))
	for _, item := range bySource {
		h = append(h, item)
	}
	for i := range h {
		h[i].heapIndex = i
	}
	heap.Init(&h)

	n := min(m.MaxTopSources, h.Len())
	out := make([]views.SourceEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, heap.Pop(&h).(*sourceItem).entry)
	}
	return out
}

func observe(s *views.SourceEntry, e domain.LogEntry, maxTypes int) {
	s.Hits++
	if e.Severity.Rank() > domain.SeverityLow.Rank() {
		s.Flagged++
	}
	if e.Severity.Rank() > s.Worst.Rank() {
		s.Worst = e.Severity
	}
	if t := e.Timestamp.Time; t.After(s.LastSeen) {
		s.LastSeen = t
	}
	if e.Type == "" {
		return
	}
	for _, known := range s.Types {
		if known == e.Type {
			return
		}
	}
	if len(s.Types) < maxTypes {
		s.Types = append(s.Types, e.Type)
	}
}

// LastAlertAge is how long the held alert has been on screen.
func (m *Model) LastAlertAge(now time.Time) time.Duration {
	if m.State.LastAlertChange.IsZero() {
		return 0
	}
	return now.Sub(m.State.LastAlertChange)
}
