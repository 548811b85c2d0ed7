package domain

import (
	"encoding/json"
	"time"
)

// MaxJournalLine bounds a single journal record when reading it back.
const MaxJournalLine = 64 * 1024

// JournalRecord is one line of the alert journal: a new alert and the local
// time it was first held.
type JournalRecord struct {
	ReceivedAt time.Time  `json:"received_at"`
	Alert      AlertEvent `json:"alert"`
}

func ParseJournalRecord(line []byte) (JournalRecord, error) {
	var rec JournalRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return JournalRecord{}, err
	}
	rec.Alert.Normalize()
	return rec, nil
}
