package domain

import (
	"sort"
	"time"
)

const (
	MsgLogsUnavailable  = "Failed to load historical logs. Backend might be unavailable."
	MsgScanFailed       = "Failed to trigger detection. Backend might be offline or unresponsive."
	MsgScanInitiated    = "Scan initiated. Monitoring for threats..."
	MsgBackendDegraded  = "Live feed degraded: backend has not answered recent polls."
	MsgNoAlertAvailable = "System nominal. All channels clear."
)

type SyncErrorKind string

const (
	SyncErrorLogs SyncErrorKind = "logs"
	SyncErrorScan SyncErrorKind = "scan"
)

// SyncError is the last user-visible failure. It is cleared by the next
// successful operation of the same kind.
type SyncError struct {
	Kind    SyncErrorKind
	Message string
	At      time.Time
}

// DashboardState is everything the rendering layer needs. Transitions are
// value methods: each returns the next state and whether anything observable
// changed, so callers can skip redundant notifications.
type DashboardState struct {
	LatestAlert  *AlertEvent
	Logs         []LogEntry
	Scan         ScanState
	Error        *SyncError
	AlertLoading bool
	LogsLoading  bool
	Degraded     bool

	RecentAlerts    []AlertEvent
	LastAlertChange time.Time
}

func NewDashboardState() DashboardState {
	return DashboardState{
		Logs:         []LogEntry{},
		AlertLoading: true,
	}
}

// Clone deep-copies slices and pointers so snapshots can be handed to other
// goroutines.
func (s DashboardState) Clone() DashboardState {
	out := s
	if s.LatestAlert != nil {
		a := *s.LatestAlert
		out.LatestAlert = &a
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	out.Logs = append([]LogEntry(nil), s.Logs...)
	if out.Logs == nil {
		out.Logs = []LogEntry{}
	}
	out.RecentAlerts = append([]AlertEvent(nil), s.RecentAlerts...)
	return out
}

// WithAlert replaces the held alert when the incoming one carries a valid
// identifier different from the held one.
func (s DashboardState) WithAlert(incoming *AlertEvent, now time.Time) (DashboardState, bool) {
	if incoming == nil || !incoming.ID.Valid() {
		return s, false
	}
	if s.LatestAlert != nil && s.LatestAlert.ID == incoming.ID {
		return s, false
	}
	a := *incoming
	s.LatestAlert = &a
	s.LastAlertChange = now
	return s, true
}

// PollFinished marks the end of a poll attempt, successful or not.
func (s DashboardState) PollFinished() (DashboardState, bool) {
	if !s.AlertLoading {
		return s, false
	}
	s.AlertLoading = false
	return s, true
}

func (s DashboardState) BeginLogs() (DashboardState, bool) {
	if s.LogsLoading {
		return s, false
	}
	s.LogsLoading = true
	return s, true
}

// WithLogs fully replaces the log list, newest first. Records with equal
// timestamps keep the order the backend sent them in.
func (s DashboardState) WithLogs(entries []LogEntry) (DashboardState, bool) {
	s.Logs = SortNewestFirst(entries)
	s.LogsLoading = false
	s = s.clearError(SyncErrorLogs)
	return s, true
}

// LogsFailed clears the list rather than leaving stale rows on screen.
func (s DashboardState) LogsFailed(now time.Time) (DashboardState, bool) {
	s.Logs = []LogEntry{}
	s.LogsLoading = false
	s.Error = &SyncError{Kind: SyncErrorLogs, Message: MsgLogsUnavailable, At: now}
	return s, true
}

// BeginScan refuses to start while a scan is already in flight.
func (s DashboardState) BeginScan() (DashboardState, bool) {
	if s.Scan.InProgress() {
		return s, false
	}
	s.Scan = ScanState{Phase: ScanScanning}
	s = s.clearError(SyncErrorScan)
	return s, true
}

func (s DashboardState) ScanCompleted(message string) (DashboardState, bool) {
	if message == "" {
		message = MsgScanInitiated
	}
	s.Scan = ScanState{Phase: ScanCompleted, Message: message}
	return s, true
}

func (s DashboardState) ScanFailed(reason string, now time.Time) (DashboardState, bool) {
	if reason == "" {
		reason = MsgScanFailed
	}
	s.Scan = ScanState{Phase: ScanFailed, Message: reason}
	s.Error = &SyncError{Kind: SyncErrorScan, Message: reason, At: now}
	return s, true
}

func (s DashboardState) WithDegraded(degraded bool) (DashboardState, bool) {
	if s.Degraded == degraded {
		return s, false
	}
	s.Degraded = degraded
	return s, true
}

func (s DashboardState) WithRecent(recent []AlertEvent) DashboardState {
	s.RecentAlerts = recent
	return s
}

func (s DashboardState) clearError(kind SyncErrorKind) DashboardState {
	if s.Error != nil && s.Error.Kind == kind {
		s.Error = nil
	}
	return s
}

func SortNewestFirst(entries []LogEntry) []LogEntry {
	out := make([]LogEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp.Time)
	})
	return out
}
