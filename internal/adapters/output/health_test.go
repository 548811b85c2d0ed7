package output

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

type fakeSync struct {
	attempt, success time.Time
	interval         time.Duration
	state            domain.DashboardState
}

func (f *fakeSync) LastPoll() (time.Time, time.Time) { return f.attempt, f.success }
func (f *fakeSync) PollInterval() time.Duration { return f.interval }
func (f *fakeSync) Snapshot() domain.DashboardState { return f.state }

func newTestChecker(src *fakeSync, now time.Time, started time.Time) *HealthChecker {
	h := NewHealthChecker(src, DefaultHealthCheckerConfig())
	h.now = func() time.Time { return now }
	h.startTime = started
	return h
}

func TestHealthStatuses(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	longAgo := now.Add(-time.Hour)

	tests := []struct {
		name    string
		src     *fakeSync
		started time.Time
		status  string
		healthy bool
	}{
		{
			name:    "starting",
			src:     &fakeSync{interval: 3 * time.Second, state: domain.NewDashboardState()},
			started: now.Add(-time.Second),
			status:  StatusStarting,
			healthy: true,
		},
		{
			name:    "ok",
			src:     &fakeSync{attempt: now, success: now.Add(-2 * time.Second), interval: 3 * time.Second},
			started: longAgo,
			status:  StatusOK,
			healthy: true,
		},
		{
			name:    "stale",
			src:     &fakeSync{attempt: now, success: now.Add(-10 * time.Second), interval: 3 * time.Second},
			started: longAgo,
			status:  StatusStale,
		},
		{
			name:    "never succeeded",
			src:     &fakeSync{attempt: now, interval: 3 * time.Second},
			started: longAgo,
			status:  StatusStale,
		},
		{
			name:    "degraded",
			src:     &fakeSync{attempt: now, success: now, interval: 3 * time.Second, state: domain.DashboardState{Degraded: true}},
			started: longAgo,
			status:  StatusDegraded,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestChecker(tc.src, now, tc.started).Check()
			assert.Equal(t, tc.status, st.Status)
			assert.Equal(t, tc.healthy, st.Healthy)
		})
	}
}

func TestHealthServeHTTP(t *testing.T) {
	now := time.Now()
	src := &fakeSync{
		attempt:  now,
		success:  now,
		interval: time.Second,
		state: domain.DashboardState{
			LatestAlert: &domain.AlertEvent{ID: "42"},
			Logs:        []domain.LogEntry{{ID: "1"}, {ID: "2"}},
		},
	}
	h := newTestChecker(src, now, now.Add(-time.Minute))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusOK, body.Status)
	assert.Equal(t, "42", body.LatestAlertID)
	assert.Equal(t, 2, body.LogCount)

	src.state.Degraded = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
