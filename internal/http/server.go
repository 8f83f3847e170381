package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/period"
	"finreport/internal/report"
	"finreport/internal/services"
)

// Reports is what the API needs from the report service.
type Reports interface {
	Resolve(t period.Type) (period.Period, error)
	Series(ctx context.Context, t period.Type, f core.Filters) (*report.Series, error)
	Categories(ctx context.Context, t period.Type, kind services.RecordKind, dim report.Dimension, f core.Filters) ([]report.CategoryGroup, error)
	Summary(ctx context.Context, t period.Type, f core.Filters) (report.Summary, error)
	JobLedger(ctx context.Context, jobID string) (services.JobReport, error)
	Ping(ctx context.Context) error
}

var _ Reports = (*services.ReportService)(nil)

// Config tunes a Server.
type Config struct {
	Addr           string
	RateLimitRPS   float64
	RateLimitBurst int
	// RequestTimeout bounds each report request, record store reads included.
	RequestTimeout time.Duration
}

type Server struct {
	http.Server
	reports     Reports
	tracker     *services.Tracker
	rateLimiter *rateLimiter
	logger      *log.Logger
	events      *log.StructuredLogger
	timeout     time.Duration
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, reports Reports, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      timeout + 5*time.Second,
			IdleTimeout:       60 * time.Second,
		},
		reports:     reports,
		tracker:     services.NewTracker(),
		rateLimiter: newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
		timeout:     timeout,
		started:     time.Now(),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/reports/series", s.handleSeries)
	mux.HandleFunc("GET /api/reports/categories", s.handleCategories)
	mux.HandleFunc("GET /api/reports/summary", s.handleSummary)
	mux.HandleFunc("GET /api/jobs/{id}/ledger", s.handleJobLedger)

	var h http.Handler = mux
	h = s.withRateLimit(h)
	h = s.withAccessLog(h)
	h = log.RequestIDMiddleware(requestID)(h)
	h = log.Middleware(logger)(h)
	s.Handler = h

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withAccessLog stamps the request id and security headers on the response
// and logs the request once it completes.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if id := log.RequestIDFromContext(r.Context()); id != "" {
			w.Header().Set(headerRequestID, id)
		}
		setSecurityHeaders(w.Header())

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.events.LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), extractClientIP(r))
	})
}

// withRateLimit applies the per-client limit to API routes. Health checks are
// never limited.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			TooManyRequestsError(s.rateLimiter.retryAfter()).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
