// Package server provides the HTTP server that wires the evaluation
// services together.
package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/lexeval/lexeval/internal/bus"
	"github.com/lexeval/lexeval/internal/config"
	"github.com/lexeval/lexeval/internal/evaluation"
	"github.com/lexeval/lexeval/internal/pkg/logger"
	"github.com/lexeval/lexeval/internal/pkg/middleware"
	"github.com/lexeval/lexeval/internal/report"
	"github.com/lexeval/lexeval/internal/runstore"
)

// Server is the main HTTP server that wires all services together.
type Server struct {
	cfg        Config
	log        *logger.Logger
	httpServer *http.Server

	// Services
	bus       bus.Bus
	runs      *runstore.Service
	evaluator *evaluation.Evaluator

	// Handlers
	evalHandler *evaluation.Handler
	runHandler  *RunHandler

	apiKey  string
	limiter *middleware.RateLimiter

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Host is the address to bind to.
	Host string

	// Port is the HTTP port.
	Port int

	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout. Evaluation requests score
	// whole scenario sets inline, so this is generous.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// New creates a new server with all dependencies.
func New(cfg Config, appCfg config.Config, log *logger.Logger) (*Server, error) {
	if cfg.Port == 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		cfg:    cfg,
		log:    log,
		apiKey: appCfg.Security.APIKey,
	}

	// Initialize the event bus. With file-backed run storage the bus is
	// wrapped in an audit log so run events survive restarts.
	eventBus, err := bus.NewBus(appCfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}
	if appCfg.Store.Type == "file" {
		audit, err := bus.NewAuditLog(filepath.Join(appCfg.Store.Path, "events.jsonl"), true)
		if err != nil {
			eventBus.Close()
			return nil, fmt.Errorf("opening event audit log: %w", err)
		}
		eventBus = bus.NewAuditedBus(eventBus, audit, log)
	}
	s.bus = eventBus

	// Initialize run storage
	storage, err := runstore.NewStorage(appCfg.Store)
	if err != nil {
		s.bus.Close()
		return nil, fmt.Errorf("creating run storage: %w", err)
	}
	runs, err := runstore.NewService(storage, s.bus)
	if err != nil {
		storage.Close()
		s.bus.Close()
		return nil, fmt.Errorf("creating run service: %w", err)
	}
	s.runs = runs

	// Initialize the evaluator and handlers
	s.evaluator = evaluation.NewEvaluator(appCfg.Scoring, s.bus, log)
	s.evalHandler = evaluation.NewHandler(s.evaluator, s.runs)
	s.runHandler = NewRunHandler(s.runs)

	if appCfg.Security.RateLimit > 0 {
		limCfg := middleware.DefaultRateLimiterConfig()
		limCfg.RequestsPerSecond = float64(appCfg.Security.RateLimit)
		limCfg.Burst = appCfg.Security.RateLimit * 2
		s.limiter = middleware.NewRateLimiter(limCfg)
	}

	return s, nil
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("Starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
	}

	// Close services
	if s.runs != nil {
		s.runs.Close()
	}
	if s.bus != nil {
		s.bus.Close()
	}

	s.started = false
	s.log.Info("Server stopped")

	return nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() http.Handler {
	// API routes sit behind the response wrapper, API key check, and
	// rate limiter. Health and version stay open for probes.
	api := http.NewServeMux()
	s.evalHandler.RegisterRoutes(api)
	s.runHandler.RegisterRoutes(api)

	var apiHandler http.Handler = ResponseWrapperMiddleware(api)
	apiHandler = middleware.APIKey(s.apiKey)(apiHandler)
	if s.limiter != nil {
		apiHandler = s.limiter.Middleware(apiHandler)
	}

	root := http.NewServeMux()
	root.Handle("/v1/", apiHandler)
	root.HandleFunc("GET /health", s.handleHealth)
	root.HandleFunc("GET /v1/version", s.handleVersion)

	return wrapWithLogging(corsMiddleware(root), s.log)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":        s.cfg.Version,
		"report_version": report.Version,
	})
}

// corsMiddleware adds CORS headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// wrapWithLogging returns a handler with request logging.
func wrapWithLogging(handler http.Handler, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Capture the status code for the log line
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		handler.ServeHTTP(wrapped, r)

		log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Health returns the server health status.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
