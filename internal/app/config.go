package app

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Settings is the typed view of the configuration keys the watcher uses.
type Settings struct {
	BaseURL       string
	Timeout       time.Duration
	PollInterval  time.Duration
	SettleDelay   time.Duration
	DegradedAfter int
	RecentAlerts  int
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://127.0.0.1:8080/api")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("poll.interval", DefaultPollInterval.String())
	v.SetDefault("poll.degraded_after", DefaultDegradedAfter)
	v.SetDefault("scan.settle_delay", DefaultSettleDelay.String())
	v.SetDefault("history.recent_alerts", DefaultRecentAlerts)
}

func LoadSettings(v *viper.Viper) Settings {
	return Settings{
		BaseURL:       v.GetString("api.base_url"),
		Timeout:       v.GetDuration("api.timeout"),
		PollInterval:  v.GetDuration("poll.interval"),
		SettleDelay:   v.GetDuration("scan.settle_delay"),
		DegradedAfter: v.GetInt("poll.degraded_after"),
		RecentAlerts:  v.GetInt("history.recent_alerts"),
	}
}

func (s Settings) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigValidationError{Field: "api.base_url", Value: s.BaseURL, Reason: "must be an absolute http(s) URL"}
	}
	if s.Timeout < 100*time.Millisecond || s.Timeout > 5*time.Minute {
		return &ConfigValidationError{Field: "api.timeout", Value: s.Timeout, Reason: "must be between 100ms and 5m"}
	}
	if s.PollInterval < 100*time.Millisecond || s.PollInterval > time.Hour {
		return &ConfigValidationError{Field: "poll.interval", Value: s.PollInterval, Reason: "must be between 100ms and 1h"}
	}
	if s.SettleDelay < 0 || s.SettleDelay > time.Minute {
		return &ConfigValidationError{Field: "scan.settle_delay", Value: s.SettleDelay, Reason: "must be between 0 and 1m"}
	}
	if s.DegradedAfter < 1 || s.DegradedAfter > 1000 {
		return &ConfigValidationError{Field: "poll.degraded_after", Value: s.DegradedAfter, Reason: "must be between 1 and 1000"}
	}
	if s.RecentAlerts < 1 || s.RecentAlerts > 10000 {
		return &ConfigValidationError{Field: "history.recent_alerts", Value: s.RecentAlerts, Reason: "must be between 1 and 10000"}
	}
	return nil
}

func (s Settings) ControllerConfig() ControllerConfig {
	return ControllerConfig{
		PollInterval:  s.PollInterval,
		SettleDelay:   s.SettleDelay,
		DegradedAfter: uint32(s.DegradedAfter),
		RecentAlerts:  s.RecentAlerts,
	}
}

type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s = %v - %s", e.Field, e.Value, e.Reason)
}

// PollTarget is what a reload acts on. *Controller satisfies it.
type PollTarget interface {
	PollInterval() time.Duration
	StartPolling(interval time.Duration)
	IsPolling() bool
}

// HotReloadConfig re-reads the config file on change and applies the new
// poll interval to a running controller. Other keys take effect on restart.
type HotReloadConfig struct {
	v      *viper.Viper
	target PollTarget

	mu       sync.Mutex
	current  Settings
	stopped  bool
	stopOnce sync.Once
}

func NewHotReloadConfig(v *viper.Viper, target PollTarget) *HotReloadConfig {
	if v == nil {
		v = viper.GetViper()
	}
	return &HotReloadConfig{
		v:       v,
		target:  target,
		current: LoadSettings(v),
	}
}

func (h *HotReloadConfig) StartWatching() {
	h.v.OnConfigChange(func(e fsnotify.Event) {
		log.Info().
			Str("file", e.Name).
			Str("op", e.Op.String()).
			Msg("Config file changed, reloading...")

		h.Reload()
	})

	h.v.WatchConfig()
	log.Info().Str("config", h.v.ConfigFileUsed()).Msg("Hot-reload config watching started")
}

// Reload validates the in-memory configuration and applies it. Invalid
// configurations are rejected and the previous settings stay in force.
func (h *HotReloadConfig) Reload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}

	next := LoadSettings(h.v)
	if err := next.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration, rejecting reload")
		return
	}

	prev := h.current
	h.current = next

	if next.PollInterval != prev.PollInterval && h.target != nil && h.target.IsPolling() {
		h.target.StartPolling(next.PollInterval)
		log.Info().
			Dur("old", prev.PollInterval).
			Dur("new", next.PollInterval).
			Msg("Poll interval hot-reloaded")
	}
}

func (h *HotReloadConfig) Current() Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *HotReloadConfig) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
		log.Info().Msg("Hot-reload config watcher stopped")
	})
}
