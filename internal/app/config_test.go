package app

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePollTarget struct {
	mu       sync.Mutex
	interval time.Duration
	starts   []time.Duration
	polling  bool
}

func (f *fakePollTarget) PollInterval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interval
}

func (f *fakePollTarget) StartPolling(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interval = d
	f.starts = append(f.starts, d)
}

func (f *fakePollTarget) IsPolling() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polling
}

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v
}

func TestLoadSettingsDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	s := LoadSettings(v)
	require.NoError(t, s.Validate())
	assert.Equal(t, 3*time.Second, s.PollInterval)
	assert.Equal(t, 1500*time.Millisecond, s.SettleDelay)
	assert.Equal(t, 10*time.Second, s.Timeout)
	assert.Equal(t, DefaultDegradedAfter, s.DegradedAfter)

	cc := s.ControllerConfig()
	assert.Equal(t, uint32(DefaultDegradedAfter), cc.DegradedAfter)
	assert.Equal(t, DefaultRecentAlerts, cc.RecentAlerts)
}

func TestLoadSettingsFromFile(t *testing.T) {
	v := newTestViper(t, `
api:
  base_url: http://ids.internal:5000/api
poll:
  interval: 5s
`)
	s := LoadSettings(v)
	assert.Equal(t, "http://ids.internal:5000/api", s.BaseURL)
	assert.Equal(t, 5*time.Second, s.PollInterval)
}

func TestSettingsValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	good := LoadSettings(v)

	tests := []struct {
		name  string
		field string
		mut   func(s *Settings)
	}{
		{"relative url", "api.base_url", func(s *Settings) { s.BaseURL = "/api" }},
		{"bad scheme", "api.base_url", func(s *Settings) { s.BaseURL = "ws://host/api" }},
		{"zero timeout", "api.timeout", func(s *Settings) { s.Timeout = 0 }},
		{"tiny interval", "poll.interval", func(s *Settings) { s.PollInterval = time.Millisecond }},
		{"negative settle", "scan.settle_delay", func(s *Settings) { s.SettleDelay = -time.Second }},
		{"zero degraded", "poll.degraded_after", func(s *Settings) { s.DegradedAfter = 0 }},
		{"zero recent", "history.recent_alerts", func(s *Settings) { s.RecentAlerts = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := good
			tc.mut(&s)
			err := s.Validate()
			require.Error(t, err)

			var cve *ConfigValidationError
			require.True(t, errors.As(err, &cve))
			assert.Equal(t, tc.field, cve.Field)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestReloadAppliesPollInterval(t *testing.T) {
	v := newTestViper(t, "poll:\n  interval: 3s\n")
	target := &fakePollTarget{interval: 3 * time.Second, polling: true}
	h := NewHotReloadConfig(v, target)

	v.Set("poll.interval", "7s")
	h.Reload()

	assert.Equal(t, []time.Duration{7 * time.Second}, target.starts)
	assert.Equal(t, 7*time.Second, h.Current().PollInterval)

	// unchanged interval does not restart the timer
	h.Reload()
	assert.Len(t, target.starts, 1)
}

func TestReloadRejectsInvalidConfig(t *testing.T) {
	v := newTestViper(t, "poll:\n  interval: 3s\n")
	target := &fakePollTarget{polling: true}
	h := NewHotReloadConfig(v, target)

	v.Set("poll.interval", "1ms")
	h.Reload()

	assert.Empty(t, target.starts)
	assert.Equal(t, 3*time.Second, h.Current().PollInterval)
}

func TestReloadSkipsStoppedPolling(t *testing.T) {
	v := newTestViper(t, "poll:\n  interval: 3s\n")
	target := &fakePollTarget{polling: false}
	h := NewHotReloadConfig(v, target)

	v.Set("poll.interval", "9s")
	h.Reload()

	assert.Empty(t, target.starts)
	assert.Equal(t, 9*time.Second, h.Current().PollInterval)
}

func TestReloadAfterStopIsIgnored(t *testing.T) {
	v := newTestViper(t, "poll:\n  interval: 3s\n")
	target := &fakePollTarget{polling: true}
	h := NewHotReloadConfig(v, target)
	h.Stop()
	h.Stop()

	v.Set("poll.interval", "9s")
	h.Reload()
	assert.Empty(t, target.starts)
}
