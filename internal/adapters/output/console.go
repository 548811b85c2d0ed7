package output

import (
	"github.com/rs/zerolog"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

// ConsoleAlerter logs alerts and state transitions for headless runs.
type ConsoleAlerter struct {
	logger zerolog.Logger

	lastScan     domain.ScanPhase
	lastError    *domain.SyncError
	lastDegraded bool
	lastLogCount int
}

func NewConsoleAlerter(logger zerolog.Logger) *ConsoleAlerter {
	return &ConsoleAlerter{logger: logger, lastLogCount: -1}
}

func (c *ConsoleAlerter) OnAlert(alert *domain.AlertEvent) {
	var ev *zerolog.Event
	switch alert.Severity {
	case domain.SeverityCritical, domain.SeverityHigh:
		ev = c.logger.Warn()
	default:
		ev = c.logger.Info()
	}
	ev.Str("id", string(alert.ID)).
		Str("severity", alert.Severity.Label()).
		Str("type", alert.Type).
		Str("source", alert.SourceString()).
		Time("timestamp", alert.Timestamp.Time).
		Str("details", alert.DetailsOr("")).
		Msg("ALERT")
}

// OnStateChange logs only the transitions an operator watching a console
// cares about. Calls are serialised by the controller.
func (c *ConsoleAlerter) OnStateChange(s domain.DashboardState) {
	if s.Scan.Phase != c.lastScan {
		c.lastScan = s.Scan.Phase
		if s.Scan.Phase != domain.ScanIdle {
			c.logger.Info().Str("phase", s.Scan.Phase.String()).Msg(s.Scan.Describe())
		}
	}

	if s.Error != nil && (c.lastError == nil || *c.lastError != *s.Error) {
		c.logger.Error().Str("kind", string(s.Error.Kind)).Msg(s.Error.Message)
	}
	c.lastError = s.Error

	if s.Degraded != c.lastDegraded {
		c.lastDegraded = s.Degraded
		if s.Degraded {
			c.logger.Warn().Msg(domain.MsgBackendDegraded)
		} else {
			c.logger.Info().Msg("Live feed restored")
		}
	}

	if !s.LogsLoading && len(s.Logs) != c.lastLogCount {
		c.lastLogCount = len(s.Logs)
		c.logger.Info().Int("count", len(s.Logs)).Msg("Historical logs loaded")
	}
}
