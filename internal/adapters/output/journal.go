// Package output holds the destinations new alerts and sync activity are
// written to: the JSON-lines journal, the console log, Prometheus metrics and
// the readiness endpoint.
package output

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

// JSONJournal appends every new alert to a JSON-lines file.
//
// Writes are buffered and flushed once a second, on Flush and on Close.
type JSONJournal struct {
	bufWriter *bufio.Writer
	file      *os.File
	encoder   *json.Encoder
	mu        sync.Mutex
	closed    bool
	stopFlush chan struct{}
	now       func() time.Time
}

type JSONJournalConfig struct {
	FilePath string // empty writes to Writer
	Writer   io.Writer
}

// NewJSONJournal opens (or creates) the journal file in append mode with
// owner-only permissions.
func NewJSONJournal(config JSONJournalConfig) (*JSONJournal, error) {
	var writer io.Writer
	var file *os.File

	switch {
	case config.FilePath != "":
		var err error
		file, err = os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, errors.Wrapf(err, "open journal %s", config.FilePath)
		}
		writer = file
	case config.Writer != nil:
		writer = config.Writer
	default:
		writer = io.Discard
	}

	const bufferSize = 64 * 1024
	bufWriter := bufio.NewWriterSize(writer, bufferSize)

	j := &JSONJournal{
		bufWriter: bufWriter,
		file:      file,
		encoder:   json.NewEncoder(bufWriter),
		stopFlush: make(chan struct{}),
		now:       time.Now,
	}

	go j.periodicFlush()

	return j, nil
}

func (j *JSONJournal) periodicFlush() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Flush(); err != nil {
				log.Warn().Err(err).Msg("Journal flush failed")
			}
		case <-j.stopFlush:
			return
		}
	}
}

func (j *JSONJournal) Write(alert *domain.AlertEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return errors.New("journal closed")
	}
	return j.encoder.Encode(domain.JournalRecord{
		ReceivedAt: j.now().UTC(),
		Alert:      *alert,
	})
}

func (j *JSONJournal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	if err := j.bufWriter.Flush(); err != nil {
		return err
	}
	if j.file != nil {
		return j.file.Sync()
	}
	return nil
}

func (j *JSONJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	close(j.stopFlush)

	if err := j.bufWriter.Flush(); err != nil {
		return err
	}
	if j.file != nil {
		if err := j.file.Sync(); err != nil {
			return err
		}
		return j.file.Close()
	}
	return nil
}

// OnAlert implements ports.AlertSubscriber.
func (j *JSONJournal) OnAlert(alert *domain.AlertEvent) {
	if err := j.Write(alert); err != nil {
		log.Warn().Err(err).Str("id", string(alert.ID)).Msg("Failed to journal alert")
	}
}
