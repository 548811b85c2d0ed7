// Package api is the HTTP client for the detection backend's /api surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8080/api"
	DefaultTimeout = 10 * time.Second

	maxBodySize = 8 << 20 // 8 MiB

	pathLogs        = "/logs"
	pathLatestAlert = "/latest-alert"
	pathTrigger     = "/trigger-detection"
)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrap(err, "invalid api base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("api base URL must be http or https, got %q", base)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "idswatch"
	}

	return &Client{
		BaseURL:   base,
		UserAgent: cfg.UserAgent,
		HTTP:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) FetchLogs(ctx context.Context) ([]domain.LogEntry, error) {
	status, body, err := c.do(ctx, http.MethodGet, pathLogs)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(http.MethodGet, pathLogs, status, body); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []domain.LogEntry{}, nil
	}

	var entries []domain.LogEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding logs"), ErrMalformedResponse)
	}
	for i := range entries {
		entries[i].Normalize()
	}
	return entries, nil
}

func (c *Client) LatestAlert(ctx context.Context) (*domain.AlertEvent, error) {
	status, body, err := c.do(ctx, http.MethodGet, pathLatestAlert)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || status == http.StatusNoContent {
		return nil, errors.Mark(errors.Newf("no alert available (status %d)", status), ErrEmptyResponse)
	}
	if err := checkStatus(http.MethodGet, pathLatestAlert, status, body); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.Mark(errors.New("no alert in response"), ErrEmptyResponse)
	}

	var alert domain.AlertEvent
	if err := json.Unmarshal(trimmed, &alert); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding latest alert"), ErrMalformedResponse)
	}
	if !alert.ID.Valid() {
		return nil, errors.Mark(errors.New("alert without id"), ErrEmptyResponse)
	}
	alert.Normalize()
	return &alert, nil
}

func (c *Client) TriggerDetection(ctx context.Context) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, pathTrigger)
	if err != nil {
		return "", err
	}
	if err := checkStatus(http.MethodPost, pathTrigger, status, body); err != nil {
		return "", err
	}
	return messageField(body), nil
}

func (c *Client) do(ctx context.Context, method, path string) (int, []byte, error) {
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "building %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		log.Debug().Err(err).
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Msg("Backend request failed")
		return 0, nil, errors.Mark(errors.Wrapf(err, "%s %s", method, path), ErrNetworkUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, errors.Mark(errors.Wrapf(err, "reading %s %s", method, path), ErrNetworkUnavailable)
	}

	log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend request completed")

	return resp.StatusCode, body, nil
}

func checkStatus(method, path string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	return &BackendError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Message:    messageField(body),
	}
}

// messageField pulls "message" out of a JSON object body. Non-JSON bodies
// yield "".
func messageField(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}
