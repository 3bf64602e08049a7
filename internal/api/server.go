// Package api provides the HTTP server for chompy.
// It exposes the per-user gamification API, the leaderboard, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chompy-labs/chompy/internal/app/engagement"
	"github.com/chompy-labs/chompy/internal/domain"
	"github.com/chompy-labs/chompy/internal/health"
	"github.com/chompy-labs/chompy/internal/infra/metrics"
	"github.com/chompy-labs/chompy/internal/logger"
)

// Server is the chompy HTTP API server.
type Server struct {
	sessions       *engagement.Sessions
	feed           *engagement.FeedService
	board          *engagement.Leaderboard
	health         *health.Checker
	log            *slog.Logger
	validate       *Validator
	now            func() time.Time
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(sessions *engagement.Sessions, feed *engagement.FeedService, board *engagement.Leaderboard, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		sessions: sessions,
		feed:     feed,
		board:    board,
		log:      log,
		validate: NewValidator(),
		now:      time.Now,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches a health checker reported on /health.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/api/leaderboard", s.handleLeaderboard)

	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Post("/xp", s.handleAddXP)

		r.Get("/achievements", s.handleAchievements)
		r.Post("/achievements", s.handleUnlock)

		r.Get("/challenges", s.handleChallenges)
		r.Get("/challenges/templates", s.handleTemplates)
		r.Post("/challenges", s.handleAcceptChallenge)
		r.Post("/challenges/{challengeID}/progress", s.handleChallengeProgress)

		r.Post("/pet/feed", s.handleFeedPet)

		r.Get("/logs", s.handleListLogs)
		r.Post("/logs", s.handleLogFood)

		r.Get("/notifications", s.handleNotifications)
		r.Post("/notifications/{id}/shown", s.handleNotificationShown)
	})

	return r
}

// Version is reported by /api/version. Overridden at link time.
var Version = "0.1.0"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", engagement.DefaultLeaderboardLimit)
	entries, err := s.board.Top(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// session resolves the {userID} path parameter to a loaded session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*engagement.Service, bool) {
	svc, err := s.sessions.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return svc, true
}

// requestLogger carries chi's request id into the context logger and
// records request latency by route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = logger.WithRequestID(ctx, id)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
		logger.FromContext(ctx, s.log).Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed)
	})
}

// fail maps err to an HTTP status and writes the error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), s.log).Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNegativeXP),
		errors.Is(err, domain.ErrNegativeIncrement),
		errors.Is(err, domain.ErrXPOutOfRange),
		errors.Is(err, domain.ErrIncrementTooLarge),
		errors.Is(err, domain.ErrXPAmountMismatch),
		errors.Is(err, domain.ErrNoFixedGrant),
		errors.Is(err, domain.ErrEmptyUserID):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// queryInt reads a positive integer query parameter.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
