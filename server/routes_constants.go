package server

import "github.com/jrsteele09/feedback-mcp-gateway/oauthmodel"

// Route path constants
const (
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"

	// OAuth 2.1
	RouteWellKnownAuthorizationServer = oauthmodel.PathAuthorizationServerConfig
	RouteWellKnownProtectedResource   = oauthmodel.PathProtectedResourceConfig
	RouteRegister                     = oauthmodel.PathRegister
	RouteAuthorize                    = oauthmodel.PathAuthorize
	RouteToken                        = oauthmodel.PathToken
)
