package output

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/nxadm/tail"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

// JournalReader streams records from a JSONJournal file. With Follow set it
// keeps waiting for new lines and survives rotation; otherwise it stops at
// end of file.
type JournalReader struct {
	path       string
	follow     bool
	bufferSize int

	mu       sync.Mutex
	tail     *tail.Tail
	running  bool
	stopChan chan struct{}
}

type JournalReaderConfig struct {
	Path       string
	Follow     bool
	BufferSize int
}

func NewJournalReader(config JournalReaderConfig) *JournalReader {
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}
	return &JournalReader{
		path:       config.Path,
		follow:     config.Follow,
		bufferSize: config.BufferSize,
		stopChan:   make(chan struct{}),
	}
}

// Start opens the journal and returns the record and error channels. Both
// are closed when reading ends. Undecodable lines are skipped.
func (r *JournalReader) Start(ctx context.Context) (<-chan domain.JournalRecord, <-chan error) {
	recChan := make(chan domain.JournalRecord, r.bufferSize)
	errChan := make(chan error, 10)

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		close(recChan)
		close(errChan)
		return recChan, errChan
	}
	r.running = true
	r.stopChan = make(chan struct{})
	stop := r.stopChan

	t, err := tail.TailFile(r.path, tail.Config{
		Follow:    r.follow,
		ReOpen:    r.follow,
		MustExist: !r.follow,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		r.running = false
		r.mu.Unlock()
		errChan <- errors.Wrapf(err, "open journal %s", r.path)
		close(recChan)
		close(errChan)
		return recChan, errChan
	}
	r.tail = t
	r.mu.Unlock()

	go func() {
		defer close(recChan)
		defer close(errChan)
		defer r.finish()

		log.Debug().Str("file", r.path).Bool("follow", r.follow).Msg("Reading alert journal")

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case line, ok := <-t.Lines:
				if !ok {
					return
				}
				if line.Err != nil {
					select {
					case errChan <- line.Err:
					default:
					}
					continue
				}
				if line.Text == "" {
					continue
				}
				if len(line.Text) > domain.MaxJournalLine {
					log.Warn().Int("size", len(line.Text)).Msg("Skipping oversized journal line")
					continue
				}

				rec, err := domain.ParseJournalRecord([]byte(line.Text))
				if err != nil {
					log.Debug().Err(err).Msg("Skipping undecodable journal line")
					continue
				}

				select {
				case recChan <- rec:
				case <-ctx.Done():
					return
				case <-stop:
					return
				}
			}
		}
	}()

	return recChan, errChan
}

func (r *JournalReader) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tail != nil {
		_ = r.tail.Stop()
		r.tail.Cleanup()
		r.tail = nil
	}
	r.running = false
}

func (r *JournalReader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

func (r *JournalReader) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
