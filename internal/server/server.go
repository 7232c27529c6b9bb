// Package server exposes the exception review engine over HTTP. Routing,
// org scoping, throttling, and the feature/execution gates live here; the
// engine itself stays pure.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/harborpoint/lendops/internal/engine"
	"github.com/harborpoint/lendops/internal/store"
)

// Options carries the server's construction-time configuration. The review
// gates are plain values here so tests can exercise both states without
// touching process environment.
type Options struct {
	ReviewsEnabled   bool
	ExecutionEnabled bool
	AllowedOrigins   []string
	RatePerSecond    float64
	RateBurst        int
}

// Server handles the /ai review API.
type Server struct {
	store  store.Store
	engine *engine.Engine
	opts   Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Server.
func New(st store.Store, eng *engine.Engine, opts Options) *Server {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 25
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 50
	}
	return &Server{
		store:    st,
		engine:   eng,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Org-ID", "X-Actor-ID"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/ai", func(r chi.Router) {
		r.Use(s.requireOrg)
		r.Use(s.throttleByOrg)

		r.Post("/payments/review", s.handlePaymentReview)
		r.Post("/inspections/review", s.handleInspectionReview)
		r.Get("/reviews", s.handleListReviews)
		r.Post("/reviews/{id}/mark", s.handleMarkReview)
		r.Post("/reviews/{id}/approve-action", s.handleApproveAction)
	})

	return r
}

type ctxKey string

const orgKey ctxKey = "org"

// requireOrg rejects any call without the org scoping header. Org
// resolution/authorization is a collaborator concern; this layer only
// requires the value and records it.
func (s *Server) requireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org := strings.TrimSpace(r.Header.Get("X-Org-ID"))
		if org == "" {
			writeError(w, http.StatusBadRequest, "X-Org-ID header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(withOrg(r.Context(), org)))
	})
}

// throttleByOrg applies a per-org token bucket.
func (s *Server) throttleByOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org := orgFrom(r.Context())
		if !s.limiter(org).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiter(org string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[org]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.opts.RatePerSecond), s.opts.RateBurst)
		s.limiters[org] = l
	}
	return l
}

// logRequests emits one structured line per request.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// response helpers

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}
