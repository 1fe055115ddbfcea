package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/feedback-mcp-gateway/auth"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/config"
	"github.com/jrsteele09/feedback-mcp-gateway/session"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.AuthorizationService
	sessions *session.Registry
	limiter  *RateLimiter
	metrics  *Metrics
	registry *prometheus.Registry
}

type Option func(*Server)

// WithPrometheusRegistry collects metrics into reg instead of a private registry.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

func New(cfg config.Config, authService *auth.AuthorizationService, sessions *session.Registry, options ...Option) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[server.New] authorization service is required")
	}
	if sessions == nil {
		return nil, errors.New("[server.New] session registry is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		auth:     authService,
		sessions: sessions,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	m, err := newMetrics(s.registry, sessions.Len)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] registering metrics")
	}
	s.metrics = m

	if rps, burst := cfg.GetRateLimit(); rps > 0 {
		s.limiter = NewRateLimiter(rps, burst)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.GetPort(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("base_url", s.config.GetBaseURL()).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "[Server.ListenAndServe]")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "[Server.ListenAndServe] shutdown")
	}
	log.Info().Msg("server stopped")
	return <-errCh
}

// RunMaintenance reclaims expired codes, tokens and idle rate limiters until ctx is cancelled.
func (s *Server) RunMaintenance(ctx context.Context) error {
	ticker := time.NewTicker(s.config.GetMaintenanceInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.maintain()
		}
	}
}

func (s *Server) maintain() {
	codes, tokens := s.auth.Cleanup()
	pruned := 0
	if s.limiter != nil {
		pruned = s.limiter.Prune()
	}
	if codes+tokens+pruned > 0 {
		log.Debug().Int("codes", codes).Int("tokens", tokens).Int("limiters", pruned).Msg("maintenance")
	}
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("*", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s%s%s] %s", color, paddedMethod, ResetColor, path)
}

// resourceURL is the protected resource identifier: the public URL of the MCP endpoint.
func (s *Server) resourceURL() string {
	return s.config.GetBaseURL() + s.config.GetMCPPath()
}

func (s *Server) resourceMetadataURL() string {
	return s.config.GetBaseURL() + RouteWellKnownProtectedResource
}
