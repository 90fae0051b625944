// Package http exposes the statement pipeline as a JSON API: upload,
// statement, dashboard, forecast, drill-down and overrides.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"pnlengine/internal/log"
	"pnlengine/internal/services"
)

// maxUploadBytes caps the accepted upload size (32 MiB covers years of
// monthly exports).
const maxUploadBytes = 32 << 20

type Server struct {
	http.Server
	reports      *services.ReportService
	logger       *log.Logger
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, reports *services.ReportService, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		reports:     reports,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/pnl", s.handleStatement)
	mux.HandleFunc("POST /api/pnl", s.handleStatementPost)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/drilldown", s.handleDrillDown)
	mux.HandleFunc("PUT /api/overrides", s.handleSetOverrides)
	mux.HandleFunc("GET /api/overrides", s.handleGetOverrides)
	mux.HandleFunc("GET /api/batches", s.handleBatches)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.Handler = s.withMiddleware(mux)
	return s
}

// withMiddleware wraps the mux with request IDs, rate limiting and access
// logging.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded", "client_ip", clientIP)
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		requestID := generateRequestID()
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), log.ContextKey("request_id"), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})

	return log.Middleware(s.logger)(limited)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
