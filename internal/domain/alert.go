package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityUnknown  Severity = "unknown"
)

// ParseSeverity maps backend labels ("High", "CRITICAL", ...) onto the
// enumeration. Anything unrecognised is SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = SeverityUnknown
		return nil
	}
	*s = ParseSeverity(raw)
	return nil
}

// Rank orders severities for display, critical highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

func (s Severity) Label() string {
	if s == "" {
		return strings.ToUpper(string(SeverityUnknown))
	}
	return strings.ToUpper(string(s))
}

// EventID is an opaque identifier. The backend sends it either as a string
// or as a number; both decode to the same textual form.
type EventID string

func (id EventID) Valid() bool { return id != "" }

func (id *EventID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EventID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// booleans, objects and arrays are not identifiers
		*id = ""
		return nil
	}
	*id = EventID(n.String())
	return nil
}

// Timestamp accepts the date formats the detection backend is known to emit.
// A value that cannot be parsed decodes to the zero time instead of failing
// the whole payload.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// maxUnixSeconds is 9999-12-31T23:59:59Z. Larger values, NaN and Inf are
// not timestamps.
const maxUnixSeconds = 253402300799

func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil && math.Abs(secs) <= maxUnixSeconds {
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC(), true
	}
	return time.Time{}, false
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, _ := ParseTimestamp(raw)
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Event is the record shape shared by the latest-alert and log endpoints.
type Event struct {
	ID        EventID   `json:"id"`
	Timestamp Timestamp `json:"timestamp"`
	Type      string    `json:"type"`
	Severity  Severity  `json:"severity"`
	SourceIP  string    `json:"source_ip"`
	Details   string    `json:"details,omitempty"`
}

// AlertEvent is the most recent detection reported by the backend.
type AlertEvent = Event

// LogEntry is one record of the historical log list.
type LogEntry = Event

// Normalize fills defaults for fields the backend omitted.
func (e *Event) Normalize() {
	if e.Severity == "" {
		e.Severity = SeverityUnknown
	}
	e.Type = strings.TrimSpace(e.Type)
}

func (e *Event) SourceString() string {
	if strings.TrimSpace(e.SourceIP) == "" {
		return "N/A"
	}
	return e.SourceIP
}

func (e *Event) DetailsOr(fallback string) string {
	if strings.TrimSpace(e.Details) == "" {
		return fallback
	}
	return e.Details
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
