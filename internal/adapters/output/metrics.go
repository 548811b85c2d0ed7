package output

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/idswatch/internal/domain"
)

// PrometheusMetrics records sync activity and received alerts. Each instance
// owns its registry so several can coexist in one process.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	polls          *prometheus.CounterVec
	logFetches     *prometheus.CounterVec
	logFetchTime   prometheus.Histogram
	scans          *prometheus.CounterVec
	alertsBySev    *prometheus.CounterVec
	alertsByType   *prometheus.CounterVec
	degraded       prometheus.Gauge
	lastAlertStamp prometheus.Gauge

	server *http.Server
	mu     sync.Mutex
}

type MetricsConfig struct {
	Port       string
	Path       string
	HealthPath string
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Port:       ":9090",
		Path:       "/metrics",
		HealthPath: "/ready",
	}
}

func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	if namespace == "" {
		namespace = "idswatch"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &PrometheusMetrics{registry: reg}

	m.polls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_polls_total",
		Help:      "Latest-alert polls by result",
	}, []string{"result"})

	m.logFetches = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "log_fetches_total",
		Help:      "Historical log fetches by result",
	}, []string{"result"})

	m.logFetchTime = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "log_fetch_duration_seconds",
		Help:      "Time spent fetching historical logs",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	m.scans = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Manual detection scans by outcome",
	}, []string{"outcome"})

	m.alertsBySev = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_by_severity_total",
		Help:      "New alerts received by severity",
	}, []string{"severity"})

	m.alertsByType = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_by_type_total",
		Help:      "New alerts received by type",
	}, []string{"type"})

	m.degraded = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_degraded",
		Help:      "1 while consecutive poll failures have tripped the breaker",
	})

	m.lastAlertStamp = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_alert_timestamp_seconds",
		Help:      "Unix time of the most recently received alert",
	})

	return m
}

func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

func (m *PrometheusMetrics) ObservePoll(result string) {
	m.polls.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) ObserveLogFetch(seconds float64, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.logFetches.WithLabelValues(result).Inc()
	m.logFetchTime.Observe(seconds)
}

func (m *PrometheusMetrics) ObserveScan(outcome string) {
	m.scans.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) SetDegraded(degraded bool) {
	if degraded {
		m.degraded.Set(1)
	} else {
		m.degraded.Set(0)
	}
}

func (m *PrometheusMetrics) OnAlert(alert *domain.AlertEvent) {
	sev := alert.Severity
	if sev == "" {
		sev = domain.SeverityUnknown
	}
	typ := alert.Type
	if typ == "" {
		typ = "unknown"
	}
	m.alertsBySev.WithLabelValues(string(sev)).Inc()
	m.alertsByType.WithLabelValues(typ).Inc()

	stamp := alert.Timestamp.Time
	if stamp.IsZero() {
		stamp = time.Now()
	}
	m.lastAlertStamp.Set(float64(stamp.Unix()))
}

// Handler serves the metrics endpoint and, when health is non-nil, the
// readiness endpoint.
func (m *PrometheusMetrics) Handler(config MetricsConfig, health http.Handler) http.Handler {
	if config.Path == "" {
		config.Path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(config.Path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	if health != nil && config.HealthPath != "" {
		mux.Handle(config.HealthPath, health)
	}
	return mux
}

func (m *PrometheusMetrics) StartServer(config MetricsConfig, health http.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.server = &http.Server{
		Addr:              config.Port,
		Handler:           m.Handler(config, health),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := m.server
	go func() {
		log.Info().Str("addr", config.Port).Str("path", config.Path).Msg("Starting Prometheus metrics server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return nil
}

func (m *PrometheusMetrics) StopServer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return m.server.Close()
	}
	return nil
}
