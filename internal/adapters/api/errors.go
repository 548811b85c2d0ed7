package api

import (
	"fmt"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

var (
	ErrNetworkUnavailable = domain.ErrNetworkUnavailable
	ErrEmptyResponse      = domain.ErrEmptyResponse
	ErrMalformedResponse  = domain.ErrMalformedResponse
)

// BackendError is a non-2xx answer. Message is the body's "message" field
// when the backend sent one.
type BackendError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *BackendError) BackendMessage() string { return e.Message }

// MessageFrom returns the backend's own explanation for err, or fallback
// when err carries none.
func MessageFrom(err error, fallback string) string {
	return domain.MessageFrom(err, fallback)
}

func IsEmpty(err error) bool { return domain.IsEmptyResponse(err) }
