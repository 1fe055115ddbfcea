package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/jrsteele09/feedback-mcp-gateway/auth"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
	"github.com/jrsteele09/feedback-mcp-gateway/oauthmodel"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClientID stores the client the bearer token was issued to
	ContextKeyClientID ContextKey = "client_id"
)

// staticKeyClientID is the caller recorded for requests authenticated with a pre-shared key.
const staticKeyClientID = "static-api-key"

// ClientIDFromContext returns the authenticated client id, if any.
func ClientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyClientID).(string)
	return id, ok
}

// RequireBearer is middleware that validates a bearer access token, or one of
// the configured static API keys, before the MCP endpoint is reached.
func (s *Server) RequireBearer() Middleware {
	staticKeys := s.config.GetStaticAPIKeys()
	enabled := s.config.GetAuthEnabled()

	return func(next http.HandlerFunc) http.HandlerFunc {
		if !enabled {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, err := auth.BearerToken(header)
			if err != nil {
				s.writeUnauthorized(w, err.Error())
				return
			}

			if matchesStaticKey(raw, staticKeys) {
				next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClientID, staticKeyClientID)))
				return
			}

			rec, err := s.auth.ValidateBearer(header)
			if err != nil {
				description := "invalid token"
				if errors.Is(err, errors.ErrTokenExpired) {
					description = "token expired"
				}
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer rejected")
				s.writeUnauthorized(w, description)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClientID, rec.ClientID)))
		}
	}
}

func (s *Server) writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer resource_metadata=%q`, s.resourceMetadataURL()))
	writeJSONError(w, oauthmodel.ErrorCodeUnauthorized, description, http.StatusUnauthorized)
}

func matchesStaticKey(token string, keys []string) bool {
	match := 0
	for _, key := range keys {
		match |= subtle.ConstantTimeCompare([]byte(token), []byte(key))
	}
	return match == 1
}
