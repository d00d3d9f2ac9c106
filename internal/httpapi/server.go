// Package httpapi exposes the read-only monitoring surface: health,
// latest quotes, recent opportunities, and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cryptoedge/arbmon/internal/persistence"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// MetricsHandler is the narrow surface the server needs from the metrics
// collector: its Prometheus scrape handler.
type MetricsHandler interface {
	Handler() http.Handler
}

// Config controls server binding and timeouts.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig binds to localhost only; this is a read-only diagnostic
// surface, not a public API.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the read-only HTTP surface over the Store's quote and
// opportunity tables.
type Server struct {
	router *mux.Router
	server *http.Server
	quotes persistence.QuotesRepo
	opps   persistence.OpportunitiesRepo
	metric MetricsHandler
	log    zerolog.Logger
	config Config
}

// New wires routes against the Store repositories and metrics collector.
func New(cfg Config, quotes persistence.QuotesRepo, opps persistence.OpportunitiesRepo, metric MetricsHandler, log zerolog.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		quotes: quotes,
		opps:   opps,
		metric: metric,
		log:    log.With().Str("component", "httpapi.Server").Logger(),
		config: cfg,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/quotes", s.handleQuotes).Methods(http.MethodGet)
	api.HandleFunc("/opportunities", s.handleOpportunities).Methods(http.MethodGet)

	if s.metric != nil {
		s.router.Handle("/metrics", s.metric.Handler()).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		writeJSONError(w, http.StatusBadRequest, "pair query parameter is required")
		return
	}

	within := 5 * time.Minute
	if v := r.URL.Query().Get("within_seconds"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			within = time.Duration(n) * time.Second
		}
	}

	quotes, err := s.quotes.LatestPerExchange(r.Context(), pair, within)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load quotes")
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	tr := persistence.TimeRange{To: time.Now()}
	if v := r.URL.Query().Get("since"); v != "" {
		if since, err := time.Parse(time.RFC3339, v); err == nil {
			tr.From = since
		}
	} else {
		tr.From = time.Now().Add(-24 * time.Hour)
	}

	opps, err := s.opps.ListRecent(r.Context(), tr, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load opportunities")
		return
	}
	writeJSON(w, http.StatusOK, opps)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Start begins serving; it blocks until the listener fails or Shutdown is
// called from another goroutine, matching the net/http ListenAndServe
// contract.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting http server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
