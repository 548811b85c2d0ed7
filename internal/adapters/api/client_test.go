package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api/"})
	require.NoError(t, err)
	return c
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://example.test"})
	assert.Error(t, err)

	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, DefaultTimeout, c.HTTP.Timeout)
}

func TestFetchLogs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/logs", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`[
			{"id":1,"timestamp":"2024-01-01T00:00:00Z","type":"Normal","severity":"Low","source_ip":"10.0.0.1"},
			{"id":2,"timestamp":"2024-01-02T00:00:00Z","type":"Anomaly","severity":"High","source_ip":"10.0.0.2","details":"Prob: 0.97"}
		]`))
	})

	logs, err := c.FetchLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.EventID("1"), logs[0].ID)
	assert.Equal(t, domain.SeverityHigh, logs[1].Severity)
	assert.Equal(t, "Prob: 0.97", logs[1].Details)
}

func TestFetchLogsEmptyAndNull(t *testing.T) {
	for _, body := range []string{"", "null", "[]"} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		logs, err := c.FetchLogs(context.Background())
		require.NoError(t, err, "body %q", body)
		assert.NotNil(t, logs)
		assert.Empty(t, logs)
	}
}

func TestFetchLogsBackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"error","message":"cannot read predictions"}`))
	})

	_, err := c.FetchLogs(context.Background())
	require.Error(t, err)

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusInternalServerError, be.StatusCode)
	assert.Equal(t, "cannot read predictions", be.Message)
}

func TestFetchLogsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	})

	_, err := c.FetchLogs(context.Background())
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestLatestAlert(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/latest-alert", r.URL.Path)
		w.Write([]byte(`{"id":"a1","severity":"critical","type":"Anomaly Detected","timestamp":"2024-01-01T00:00:00"}`))
	})

	alert, err := c.LatestAlert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.EventID("a1"), alert.ID)
	assert.Equal(t, domain.SeverityCritical, alert.Severity)
}

func TestLatestAlertEmptyResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found with message", http.StatusNotFound, `{"message":"No predictions available yet."}`},
		{"no content", http.StatusNoContent, ``},
		{"null body", http.StatusOK, `null`},
		{"empty object", http.StatusOK, `{}`},
		{"blank id", http.StatusOK, `{"id":"","type":"Normal"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			alert, err := c.LatestAlert(context.Background())
			assert.Nil(t, alert)
			assert.True(t, IsEmpty(err), "got %v", err)
		})
	}
}

func TestTriggerDetection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/trigger-detection", r.URL.Path)
		assert.Equal(t, int64(0), r.ContentLength)
		w.Write([]byte(`{"status":"success","message":"Detection cycle completed."}`))
	})

	msg, err := c.TriggerDetection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Detection cycle completed.", msg)
}

func TestTriggerDetectionFailureMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"sensor offline"}`))
	})

	_, err := c.TriggerDetection(context.Background())
	require.Error(t, err)
	assert.Equal(t, "sensor offline", MessageFrom(err, "fallback"))
}

func TestTriggerDetectionFailureWithoutMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := c.TriggerDetection(context.Background())
	require.Error(t, err)
	assert.Equal(t, "fallback", MessageFrom(err, "fallback"))
}

func TestNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base})
	require.NoError(t, err)

	_, err = c.FetchLogs(context.Background())
	assert.True(t, errors.Is(err, ErrNetworkUnavailable))
	assert.Equal(t, "fallback", MessageFrom(err, "fallback"))
}
