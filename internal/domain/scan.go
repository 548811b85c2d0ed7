package domain

type ScanPhase int

const (
	ScanIdle ScanPhase = iota
	ScanScanning
	ScanFailed
	ScanCompleted
)

func (p ScanPhase) String() string {
	switch p {
	case ScanScanning:
		return "SCANNING"
	case ScanFailed:
		return "FAILED"
	case ScanCompleted:
		return "COMPLETED"
	default:
		return "IDLE"
	}
}

// ScanState tracks one operator-triggered detection pass. Message holds the
// failure reason for ScanFailed and the server message for ScanCompleted.
type ScanState struct {
	Phase   ScanPhase
	Message string
}

func (s ScanState) InProgress() bool { return s.Phase == ScanScanning }

func (s ScanState) Describe() string {
	switch s.Phase {
	case ScanScanning:
		return "Scanning network..."
	case ScanFailed:
		return "Scan failed: " + s.Message
	case ScanCompleted:
		return s.Message
	default:
		return "Idle"
	}
}
