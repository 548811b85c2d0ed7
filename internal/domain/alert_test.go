package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input    string
		expected Severity
	}{
		{"critical", SeverityCritical},
		{"High", SeverityHigh},
		{" MEDIUM ", SeverityMedium},
		{"low", SeverityLow},
		{"", SeverityUnknown},
		{"catastrophic", SeverityUnknown},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, ParseSeverity(tc.input), tc.input)
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Greater(t, SeverityLow.Rank(), SeverityUnknown.Rank())
	assert.Equal(t, "UNKNOWN", Severity("").Label())
	assert.Equal(t, "HIGH", SeverityHigh.Label())
}

func TestEventIDAcceptsStringsAndNumbers(t *testing.T) {
	var events []Event
	err := json.Unmarshal([]byte(`[{"id":"a1"},{"id":7},{"id":null},{}]`), &events)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, EventID("a1"), events[0].ID)
	assert.Equal(t, EventID("7"), events[1].ID)
	assert.False(t, events[2].ID.Valid())
	assert.False(t, events[3].ID.Valid())
}

func TestEventIDOtherJSONKindsAreInvalid(t *testing.T) {
	var events []Event
	err := json.Unmarshal([]byte(`[{"id":true,"type":"a"},{"id":{},"type":"b"},{"id":[1],"type":"c"},{"id":9,"type":"d"}]`), &events)
	require.NoError(t, err)
	require.Len(t, events, 4)

	for _, ev := range events[:3] {
		assert.False(t, ev.ID.Valid(), "type %s", ev.Type)
	}
	assert.Equal(t, "b", events[1].Type)
	assert.Equal(t, EventID("9"), events[3].ID)
}

func TestParseTimestampLayouts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"offset", "2024-01-02T03:04:05+00:00", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"isoformat micros", "2024-01-02T03:04:05.250000", time.Date(2024, 1, 2, 3, 4, 5, 250000000, time.UTC)},
		{"space separated", "2024-01-02 03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"date only", "2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"unix seconds", "1704164645", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tc.input)
			require.True(t, ok)
			assert.True(t, tc.want.Equal(got), "got %v", got)
		})
	}

	for _, bad := range []string{"yesterday-ish", "NaN", "Inf", "-Inf", "1e300", "-1e300"} {
		got, ok := ParseTimestamp(bad)
		assert.False(t, ok, bad)
		assert.True(t, got.IsZero(), bad)
	}

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","timestamp":1e300}`), &ev))
	assert.True(t, ev.Timestamp.IsZero())
}

func TestEventDecodeFromBackendPayload(t *testing.T) {
	payload := `{
		"id": "42",
		"timestamp": "2024-05-01T10:00:00.000001",
		"type": "Anomaly Detected",
		"severity": "High",
		"source_ip": "10.0.0.9",
		"details": "Intrusion probability: 0.91"
	}`

	var ev AlertEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &ev))
	ev.Normalize()

	assert.Equal(t, EventID("42"), ev.ID)
	assert.Equal(t, SeverityHigh, ev.Severity)
	assert.Equal(t, "Anomaly Detected", ev.Type)
	assert.Equal(t, "10.0.0.9", ev.SourceString())
	assert.Equal(t, 2024, ev.Timestamp.Year())
}

func TestEventDecodeToleratesBadFields(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"timestamp":"not a date","severity":3}`), &ev))
	ev.Normalize()

	assert.True(t, ev.Timestamp.IsZero())
	assert.Equal(t, SeverityUnknown, ev.Severity)
	assert.Equal(t, "N/A", ev.SourceString())
	assert.Equal(t, "N/A", ev.DetailsOr("N/A"))
}

func TestEventToJSON(t *testing.T) {
	ev := Event{
		ID:        "x",
		Timestamp: Timestamp{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Type:      "Normal",
		Severity:  SeverityLow,
	}

	data, err := ev.ToJSON()
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "x", parsed["id"])
	assert.Equal(t, "low", parsed["severity"])
	assert.Equal(t, "2024-01-01T00:00:00Z", parsed["timestamp"])
	_, hasDetails := parsed["details"]
	assert.False(t, hasDetails)
}
