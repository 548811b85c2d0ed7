package ports

// Poll results reported to SyncObserver.ObservePoll.
const (
	PollNew       = "new"
	PollUnchanged = "unchanged"
	PollEmpty     = "empty"
	PollError     = "error"
	PollSkipped   = "skipped"
)

// Scan outcomes reported to SyncObserver.ObserveScan.
const (
	ScanOutcomeCompleted = "completed"
	ScanOutcomeFailed    = "failed"
	ScanOutcomeRejected  = "rejected"
)

// SyncObserver records what the controller did, for metrics.
//
// Thread Safety: Implementations MUST be safe for concurrent calls.
type SyncObserver interface {
	ObservePoll(result string)
	ObserveLogFetch(seconds float64, ok bool)
	ObserveScan(outcome string)
	SetDegraded(degraded bool)
}
