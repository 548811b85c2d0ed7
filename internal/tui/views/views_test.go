package views

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

func entries(n int) []domain.LogEntry {
	out := make([]domain.LogEntry, n)
	for i := range out {
		out[i] = domain.LogEntry{ID: domain.EventID(fmt.Sprint(n - i)), Type: "Normal", Severity: domain.SeverityLow}
	}
	return out
}

func TestLogTableSelectionAndScroll(t *testing.T) {
	table := NewLogTable(3)
	table.Update(entries(10), false)

	require.NotNil(t, table.Selected())
	assert.Equal(t, domain.EventID("10"), table.Selected().ID, "newest entry selected first")

	for i := 0; i < 4; i++ {
		table.ScrollDown()
	}
	assert.Equal(t, 4, table.SelectedIndex)
	assert.Equal(t, 2, table.ScrollPos)

	for i := 0; i < 10; i++ {
		table.ScrollUp()
	}
	assert.Equal(t, 0, table.SelectedIndex)
	assert.Equal(t, 0, table.ScrollPos)

	for i := 0; i < 20; i++ {
		table.ScrollDown()
	}
	assert.Equal(t, 9, table.SelectedIndex)
	assert.Equal(t, 7, table.ScrollPos)
	assert.Contains(t, table.Render(), "[8-10 of 10]")
}

func TestLogTableUpdateKeepsSelectedEntry(t *testing.T) {
	table := NewLogTable(5)
	table.Update(entries(5), false)
	table.ScrollDown()
	require.Equal(t, domain.EventID("4"), table.Selected().ID)

	// a newer entry pushes everything down one row
	next := append([]domain.LogEntry{{ID: "6"}}, entries(5)...)
	table.Update(next, false)
	assert.Equal(t, domain.EventID("4"), table.Selected().ID)
	assert.Equal(t, 2, table.SelectedIndex)

	table.Update([]domain.LogEntry{{ID: "x"}}, false)
	assert.Equal(t, 0, table.SelectedIndex)
}

func TestLogTablePlaceholders(t *testing.T) {
	table := NewLogTable(5)
	table.Update(nil, true)
	assert.Contains(t, table.Render(), "Loading historical logs")
	assert.Nil(t, table.Selected())

	table.Update([]domain.LogEntry{}, false)
	assert.Contains(t, table.Render(), "No historical logs")
}

func TestLogTableRenderSanitizes(t *testing.T) {
	table := NewLogTable(5)
	table.Width = 120
	table.Update([]domain.LogEntry{{ID: "1", Type: "\x1b[2JAnomaly", Details: "x\x1b]0;pwn\x07y"}}, false)

	out := table.Render()
	assert.NotContains(t, out, "\x1b]0;")
	assert.Contains(t, out, "[ESC]Anomaly")
}

func TestAlertPanelStates(t *testing.T) {
	p := NewAlertPanel(100)

	s := domain.NewDashboardState()
	assert.Contains(t, p.Render(s), "Awaiting first poll")

	s, _ = s.PollFinished()
	assert.Contains(t, p.Render(s), domain.MsgNoAlertAvailable)

	s, _ = s.WithAlert(&domain.AlertEvent{
		ID:       "a1",
		Type:     "Anomaly Detected",
		Severity: domain.SeverityHigh,
		Details:  "Intrusion probability: 0.91",
	}, time.Now())
	out := p.Render(s)
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "Anomaly Detected")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "Intrusion probability: 0.91")
}

func TestConsoleAndBanner(t *testing.T) {
	assert.Contains(t, RenderConsole(domain.ScanState{Phase: domain.ScanScanning}, 80), "Scanning network...")
	assert.Contains(t, RenderConsole(domain.ScanState{Phase: domain.ScanFailed, Message: "sensor offline"}, 80), "Scan failed: sensor offline")

	assert.Empty(t, RenderBanner(nil, 80))
	assert.Contains(t, RenderBanner(&domain.SyncError{Message: domain.MsgLogsUnavailable}, 100), "Failed to load historical logs")
}

func TestTopSourcesRender(t *testing.T) {
	v := NewTopSources(100)
	assert.Contains(t, v.Render(), "No sources")

	v.Update([]SourceEntry{
		{Source: "10.0.0.1", Hits: 4, Flagged: 2, Worst: domain.SeverityHigh, Types: []string{"Anomaly"}},
		{Source: "N/A", Hits: 1, Worst: domain.SeverityLow, Types: []string{"Normal"}},
	})
	out := v.Render()
	assert.Contains(t, out, "10.0.0.1")
	assert.Contains(t, out, "N/A")
	assert.True(t, strings.Index(out, "10.0.0.1") < strings.Index(out, "N/A"))
}

func TestInspectorRender(t *testing.T) {
	p := NewInspector()
	assert.Empty(t, p.Render())

	p.SetDimensions(100, 40)
	p.Open("log entry", &domain.Event{ID: "7", Type: "Uncertain", Severity: domain.SeverityMedium, SourceIP: "10.1.1.1", Details: "Prob: 0.55, Raw Class: -1"})
	require.True(t, p.Visible)

	out := p.Render()
	assert.Contains(t, out, "LOG ENTRY")
	assert.Contains(t, out, "MEDIUM")
	assert.Contains(t, out, "Raw Class: -1")
	assert.Contains(t, out, `"source_ip": "10.1.1.1"`)

	p.Close()
	assert.False(t, p.Visible)
}

func TestStatusBar(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStatus(140)
	s.now = func() time.Time { return now }
	s.StartTime = now.Add(-90 * time.Second)

	s.Update(StatusInfo{LastAttempt: now, LastSuccess: now.Add(-2 * time.Second), PollInterval: 3 * time.Second, LogCount: 12})
	out := s.Render()
	assert.Contains(t, out, "LIVE")
	assert.Contains(t, out, "2s ago")
	assert.Contains(t, out, "1m30s")

	s.Update(StatusInfo{Degraded: true})
	out = s.Render()
	assert.Contains(t, out, "DEGRADED")
	assert.Contains(t, out, "never")
}

func TestFmtAge(t *testing.T) {
	assert.Equal(t, "<1s", fmtAge(10*time.Millisecond))
	assert.Equal(t, "42s", fmtAge(42*time.Second))
	assert.Equal(t, "2m05s", fmtAge(125*time.Second))
	assert.Equal(t, "1h01m", fmtAge(61*time.Minute))
}
