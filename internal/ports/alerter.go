// Package ports defines the interfaces between the dashboard's sync core and
// its collaborators: the detection backend it polls, and the outputs that
// observe its state (TUI, metrics, journal).
//
// Dependencies flow inward: internal/app depends only on these interfaces,
// implementations live in internal/adapters and internal/tui.
package ports

import (
	"context"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

// AlertSource is the detection backend as seen by the dashboard.
//
// Implementations:
//   - api.Client: HTTP client for the /api endpoints
//
// Thread Safety: Implementations MUST be safe for concurrent calls; the
// polling timer and operator actions may overlap.
type AlertSource interface {
	// FetchLogs returns the full historical log list in backend order.
	FetchLogs(ctx context.Context) ([]domain.LogEntry, error)

	// LatestAlert returns the most recent alert. An empty response is
	// reported as an error marked api.ErrEmptyResponse.
	LatestAlert(ctx context.Context) (*domain.AlertEvent, error)

	// TriggerDetection asks the backend to run a detection pass now and
	// returns the server message, which may be empty.
	TriggerDetection(ctx context.Context) (string, error)
}

// AlertSubscriber is notified when the held alert is replaced.
//
// Performance: called from the goroutine that applied the poll result;
// implementations should return quickly.
type AlertSubscriber interface {
	OnAlert(alert *domain.AlertEvent)
}

// StateSubscriber receives a snapshot after every observable state change.
// The snapshot is a private copy and safe to retain.
type StateSubscriber interface {
	OnStateChange(state domain.DashboardState)
}
