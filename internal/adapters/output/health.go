package output

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

const (
	StatusOK       = "OK"
	StatusDegraded = "DEGRADED"
	StatusStale    = "STALE"
	StatusStarting = "STARTING"
)

// SyncSource is the part of the controller the health check reads.
type SyncSource interface {
	LastPoll() (attempt, success time.Time)
	PollInterval() time.Duration
	Snapshot() domain.DashboardState
}

type HealthStatus struct {
	Healthy       bool    `json:"healthy"`
	Status        string  `json:"status"`
	LastPollAgo   float64 `json:"last_poll_seconds_ago"`
	LastSuccessAt string  `json:"last_success_at,omitempty"`
	LatestAlertID string  `json:"latest_alert_id,omitempty"`
	LogCount      int     `json:"log_count"`
	Uptime        float64 `json:"uptime_seconds"`
	Reason        string  `json:"reason,omitempty"`
}

type HealthChecker struct {
	source      SyncSource
	staleFactor int
	startTime   time.Time
	now         func() time.Time
}

type HealthCheckerConfig struct {
	// StaleFactor is how many poll intervals may pass without a successful
	// poll before the feed is reported stale.
	StaleFactor int
}

func DefaultHealthCheckerConfig() HealthCheckerConfig {
	return HealthCheckerConfig{StaleFactor: 3}
}

func NewHealthChecker(source SyncSource, config HealthCheckerConfig) *HealthChecker {
	if config.StaleFactor <= 0 {
		config.StaleFactor = 3
	}
	return &HealthChecker{
		source:      source,
		staleFactor: config.StaleFactor,
		startTime:   time.Now(),
		now:         time.Now,
	}
}

func (h *HealthChecker) Check() HealthStatus {
	now := h.now()
	state := h.source.Snapshot()
	attempt, success := h.source.LastPoll()
	window := h.source.PollInterval() * time.Duration(h.staleFactor)

	status := HealthStatus{
		Uptime:   now.Sub(h.startTime).Seconds(),
		LogCount: len(state.Logs),
	}
	if state.LatestAlert != nil {
		status.LatestAlertID = string(state.LatestAlert.ID)
	}
	if !attempt.IsZero() {
		status.LastPollAgo = now.Sub(attempt).Seconds()
	}
	if !success.IsZero() {
		status.LastSuccessAt = success.UTC().Format(time.RFC3339)
	}

	switch {
	case success.IsZero() && now.Sub(h.startTime) < window:
		status.Status = StatusStarting
		status.Healthy = true
		status.Reason = "waiting for first successful poll"
	case state.Degraded:
		status.Status = StatusDegraded
		status.Reason = domain.MsgBackendDegraded
	case success.IsZero() || now.Sub(success) > window:
		status.Status = StatusStale
		status.Reason = fmt.Sprintf("no successful poll within %v", window)
	default:
		status.Status = StatusOK
		status.Healthy = true
	}
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
