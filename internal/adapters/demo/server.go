package demo

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

const (
	msgCycleCompleted = "Detection cycle completed. Check logs for results."
	msgNoPredictions  = "No predictions available yet."
	msgNoCapture      = "Prediction file not found. Run detection first."
	msgCaptureFailed  = "Packet capture script did not produce live_data.csv."
)

type ServerConfig struct {
	Listen         string
	ScanDelay      time.Duration
	FailurePercent int
	AllowedOrigins []string
	Generator      GeneratorConfig
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Listen:         "127.0.0.1:8080",
		ScanDelay:      2 * time.Second,
		AllowedOrigins: []string{"*"},
		Generator:      DefaultGeneratorConfig(),
	}
}

type alertPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	SourceIP  string `json:"source_ip"`
	Details   string `json:"details"`
}

// Server answers /api/trigger-detection, /api/latest-alert and /api/logs
// from the predictions of the most recent capture.
type Server struct {
	config    ServerConfig
	generator *Generator
	router    *mux.Router

	mu       sync.RWMutex
	batch    []Prediction
	captured bool
	scanMu   sync.Mutex
	rng      *rand.Rand
	rngMu    sync.Mutex

	httpServer *http.Server
}

func NewServer(config ServerConfig) *Server {
	if config.FailurePercent < 0 {
		config.FailurePercent = 0
	}
	if config.FailurePercent > 100 {
		config.FailurePercent = 100
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		config:    config,
		generator: NewGenerator(config.Generator),
		router:    mux.NewRouter(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              config.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/trigger-detection", s.handleTrigger).Methods(http.MethodPost)
	api.HandleFunc("/latest-alert", s.handleLatestAlert).Methods(http.MethodGet)
	api.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
}

// Handler is the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	})
	return c.Handler(s.router)
}

func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.config.Listen).Msg("Demo backend listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleTrigger runs one capture. Captures are serialised like the real
// capture script, which owns the network interface.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	if s.config.ScanDelay > 0 {
		select {
		case <-time.After(s.config.ScanDelay):
		case <-r.Context().Done():
			return
		}
	}

	if s.shouldFail() {
		log.Warn().Msg("Injected capture failure")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": msgCaptureFailed,
		})
		return
	}

	batch := s.generator.Capture()
	s.mu.Lock()
	s.batch = batch
	s.captured = true
	s.mu.Unlock()

	anomalies := 0
	for _, p := range batch {
		if p.Class == ClassAnomaly {
			anomalies++
		}
	}
	log.Info().Int("predictions", len(batch)).Int("anomalies", anomalies).Msg("Capture completed")

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": msgCycleCompleted,
		"output":  "",
	})
}

func (s *Server) handleLatestAlert(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	captured := s.captured
	var latest *Prediction
	if n := len(s.batch); n > 0 {
		p := s.batch[n-1]
		latest = &p
	}
	s.mu.RUnlock()

	switch {
	case !captured:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": msgNoCapture})
	case latest == nil:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": msgNoPredictions})
	default:
		writeJSON(w, http.StatusOK, alertPayload{
			ID:        latest.ID(),
			Timestamp: latest.At.Format(time.RFC3339Nano),
			Type:      latest.AlertType(),
			Severity:  latest.Severity(),
			SourceIP:  latest.SourceIP.String(),
			Details:   latest.AlertDetails(),
		})
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	batch := append([]Prediction(nil), s.batch...)
	s.mu.RUnlock()

	logs := make([]alertPayload, 0, len(batch))
	for _, p := range batch {
		logs = append(logs, alertPayload{
			ID:        p.ID(),
			Timestamp: p.At.Format(time.RFC3339Nano),
			Type:      p.LogType(),
			Severity:  p.Severity(),
			SourceIP:  p.SourceIP.String(),
			Details:   p.LogDetails(),
		})
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) shouldFail() bool {
	if s.config.FailurePercent == 0 {
		return false
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(100) < s.config.FailurePercent
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("elapsed", time.Since(start)).
			Msg("Demo request")
	})
}
