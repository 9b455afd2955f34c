package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/manthysbr/partsdesk/internal/config"
	"github.com/manthysbr/partsdesk/internal/core/domain"
	"github.com/manthysbr/partsdesk/internal/core/services"
)

// ReadinessCheck probes one dependency (database, session store).
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	logger  *slog.Logger
	cfg     *domain.AppConfig
	chat    *services.ChatService
	engine  *services.MatchingEngine
	metrics *services.Metrics
	version string
	checks  map[string]ReadinessCheck
	started time.Time
}

type Option func(*Server)

func WithMetrics(m *services.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithReadinessCheck adds a named probe to GET /api/ready.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

func NewServer(logger *slog.Logger, cfg *domain.AppConfig, chat *services.ChatService, engine *services.MatchingEngine, opts ...Option) *Server {
	s := &Server{
		logger:  logger,
		cfg:     cfg,
		chat:    chat,
		engine:  engine,
		version: "dev",
		checks:  make(map[string]ReadinessCheck),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/ws", s.handleWebSocket)

		r.Get("/sessions/{id}/events", s.handleSessionEvents)
		r.Get("/sessions/{id}/messages", s.handleSessionMessages)
		r.Delete("/sessions/{id}", s.handleResetSession)

		r.Get("/products", s.handleListProducts)
		r.Get("/products/{partNumber}", s.handleGetProduct)
		r.Get("/tools", s.handleListTools)

		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handleHealth reports liveness. GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"tools":   len(s.chat.Tools()),
	})
}

// handleReady runs every readiness probe and exposes the masked config.
// GET /api/ready
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed", "check", name, "error", err)
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"config": config.Masked(s.cfg),
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps err onto a status. Client errors carry their message;
// server errors are logged and answered with a fixed text.
func (s *Server) writeFailure(w http.ResponseWriter, msg string, err error, attrs ...any) {
	status, public := publicError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, append(attrs, "status", status, "error", err)...)
	} else {
		s.logger.Debug(msg, append(attrs, "status", status, "error", err)...)
	}
	writeError(w, status, public)
}

// publicError is the status and the client-safe message for err.
func publicError(err error) (int, string) {
	status := statusFor(err)
	switch {
	case status == http.StatusGatewayTimeout:
		return status, "request timed out"
	case status >= http.StatusInternalServerError:
		return status, "internal error"
	}
	return status, err.Error()
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMessageTooLong):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrPartNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
