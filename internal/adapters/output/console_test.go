package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

func TestConsoleAlerterLogsAlerts(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleAlerter(zerolog.New(&buf))

	c.OnAlert(&domain.AlertEvent{ID: "9", Severity: domain.SeverityHigh, Type: "Anomaly Detected", SourceIP: "10.0.0.5"})

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"id":"9"`)
	assert.Contains(t, out, `"severity":"HIGH"`)
	assert.Contains(t, out, `"source":"10.0.0.5"`)
}

func TestConsoleAlerterLogsTransitionsOnce(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleAlerter(zerolog.New(&buf))

	s := domain.NewDashboardState()
	s, _ = s.BeginScan()
	c.OnStateChange(s)
	c.OnStateChange(s)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Scanning network...")))

	s, _ = s.ScanFailed("sensor offline", time.Now())
	c.OnStateChange(s)
	c.OnStateChange(s)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"kind":"scan"`)))

	s, _ = s.WithDegraded(true)
	c.OnStateChange(s)
	assert.Contains(t, buf.String(), domain.MsgBackendDegraded)
}
