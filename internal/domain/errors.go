package domain

import "github.com/cockroachdb/errors"

// Error kinds shared by the backend client and the sync controller.
var (
	// ErrNetworkUnavailable marks requests that never produced a response.
	ErrNetworkUnavailable = errors.New("backend unreachable")
	// ErrEmptyResponse marks a latest-alert answer without a usable alert.
	// It is a no-op for the dashboard, not a failure.
	ErrEmptyResponse = errors.New("empty response")
	// ErrMalformedResponse marks 2xx bodies that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// BackendMessenger is implemented by errors that carry the backend's own
// explanation of a failure.
type BackendMessenger interface {
	BackendMessage() string
}

// MessageFrom returns the backend's message carried by err, or fallback.
func MessageFrom(err error, fallback string) string {
	var bm BackendMessenger
	if errors.As(err, &bm) {
		if msg := bm.BackendMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

func IsEmptyResponse(err error) bool { return errors.Is(err, ErrEmptyResponse) }
