// Package server exposes the newsletter subscription flow over HTTP: the
// subscribe endpoint the static site posts to, plus the confirmation and
// unsubscribe links embedded in emails.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/vctrpage/vctr/internal/newsletter"
)

// Server is the newsletter HTTP API.
type Server struct {
	Addr      string
	Origin    string // public site origin, used in result pages
	OwnerName string

	service  *newsletter.Service
	verifier CaptchaVerifier
	metrics  *Metrics
	logger   *slog.Logger

	router *chi.Mux
	server *http.Server
}

// NewServer wires the newsletter service into an HTTP server.
func NewServer(addr, origin, ownerName string, svc *newsletter.Service, verifier CaptchaVerifier, reg *prom.Registry, logger *slog.Logger) *Server {
	s := &Server{
		Addr:      addr,
		Origin:    origin,
		OwnerName: ownerName,
		service:   svc,
		verifier:  verifier,
		metrics:   NewMetrics(reg),
		logger:    logger,
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Post("/api/newsletter", s.handleSubscribe)
	s.router.Get("/api/newsletter-confirm", s.handleConfirm)
	s.router.Get("/api/newsletter-unsubscribe", s.handleUnsubscribe)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/metrics", s.metrics.Handler().ServeHTTP)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics exposes the server's instruments so other components (the cleanup
// scheduler) report into the same registry.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("newsletter server listening", "addr", s.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
