package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.Health(), s.BaseMiddleware(RouteHealth)...))

	// Discovery
	s.RegisterRouteHandler("GET "+RouteWellKnownAuthorizationServer, ChainMiddleware(s.AuthorizationServerMetadata(), s.APIMiddleware(RouteWellKnownAuthorizationServer)...))
	s.RegisterRouteHandler("GET "+RouteWellKnownProtectedResource, ChainMiddleware(s.ProtectedResourceMetadata(), s.APIMiddleware(RouteWellKnownProtectedResource)...))
	// Path-suffixed form used by clients that append the resource path.
	s.RegisterRouteHandler("GET "+RouteWellKnownProtectedResource+"/{resource...}", ChainMiddleware(s.ProtectedResourceMetadata(), s.APIMiddleware(RouteWellKnownProtectedResource)...))

	// OAuth 2.1 endpoints
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.Register(), s.APIMiddleware(RouteRegister, s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.AuthorizeGet(), s.HTMLMiddleWare(RouteAuthorize)...))
	s.RegisterRouteHandler("POST "+RouteAuthorize, ChainMiddleware(s.AuthorizePost(), s.HTMLMiddleWare(RouteAuthorize)...))
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.Token(), s.APIMiddleware(RouteToken, s.RateLimitMiddleware, NoStoreMiddleware)...))

	// CORS preflight for the browser-facing API routes
	for _, route := range []string{RouteWellKnownAuthorizationServer, RouteWellKnownProtectedResource, RouteRegister, RouteToken} {
		s.RegisterRouteHandler("OPTIONS "+route, ChainMiddleware(noContent, s.APIMiddleware(route)...))
	}

	// MCP
	mcpPath := s.config.GetMCPPath()
	s.RegisterRouteHandler(mcpPath, ChainMiddleware(s.sessions.ServeHTTP, s.APIMiddleware(mcpPath, s.RequireBearer())...))

	if s.config.GetMetricsEnabled() {
		s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	}
}

// Health reports liveness.
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
