package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cjordan223/web-scrape-ai/internal/metrics"
	"github.com/cjordan223/web-scrape-ai/internal/store"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Server wires HTTP handlers to the store's read surface.
type Server struct {
	router chi.Router
	reader store.Reader
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(reader store.Reader, logger *zap.Logger) *Server {
	s := &Server{
		reader: reader,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/results", s.listResults)
		r.Get("/rejected", s.listRejected)
		r.Get("/quarantine", s.listQuarantined)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/active", s.activeRun)
		r.Get("/stats", s.stats)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.reader.Counts(r.Context()); err != nil {
		writeError(s.logger, w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	rows, err := s.reader.ListResults(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list results failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "failed to list results")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, listResponse[store.ResultRow]{Items: rows, Limit: limit, Offset: offset})
}

func (s *Server) listRejected(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	rows, err := s.reader.ListRejected(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list rejected failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "failed to list rejected")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, listResponse[store.RejectedRow]{Items: rows, Limit: limit, Offset: offset})
}

func (s *Server) listQuarantined(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	rows, err := s.reader.ListQuarantined(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list quarantine failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "failed to list quarantine")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, listResponse[store.QuarantineRow]{Items: rows, Limit: limit, Offset: offset})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	runs, err := s.reader.ListRuns(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"runs": runs, "limit": limit, "offset": offset})
}

func (s *Server) activeRun(w http.ResponseWriter, r *http.Request) {
	active, err := s.reader.ActiveRun(r.Context())
	if err != nil {
		s.logger.Error("active run check failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "failed to check active run")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]bool{"active": active})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.reader.Counts(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, counts)
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(s.logger, w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
