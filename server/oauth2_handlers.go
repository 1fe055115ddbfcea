package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/jrsteele09/feedback-mcp-gateway/auth"
	"github.com/jrsteele09/feedback-mcp-gateway/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"

	maxRequestBodySize = 1 << 20
)

// AuthorizationServerMetadata serves the RFC 8414 discovery document.
func (s *Server) AuthorizationServerMetadata() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(s.auth.Metadata())
	}
}

// ProtectedResourceMetadata serves the RFC 9728 document for the MCP endpoint.
func (s *Server) ProtectedResourceMetadata() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.auth.ProtectedResourceMetadata(s.resourceURL())
		if err != nil {
			log.Err(err).Msg("protected resource metadata")
			writeJSONError(w, oauthmodel.ErrorCodeServerError, "", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(doc)
	}
}

// Register handles RFC 7591 dynamic client registration.
func (s *Server) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
		if err != nil {
			writeJSONError(w, oauthmodel.ErrorCodeInvalidRequest, "request body too large or unreadable", http.StatusBadRequest)
			return
		}

		resp, err := s.auth.RegisterClient(body)
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		log.Info().Str("client_id", resp.ClientID).Str("client_name", resp.ClientName).
			Str("auth_method", string(resp.TokenEndpointAuthMethod)).Msg("client registered")

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// AuthorizeGet validates the request and renders the consent page. Nothing
// is stored until the user approves.
func (s *Server) AuthorizeGet() http.HandlerFunc {
	consent := mustParseTemplate("consent.html")

	return func(w http.ResponseWriter, r *http.Request) {
		params := oauthmodel.ParseAuthorizationParameters(r.URL.Query())
		client, resolved, err := s.auth.ValidateAuthorizeRequest(params)
		if err != nil {
			s.renderAuthorizeError(w, err)
			return
		}

		clientName := client.Name
		if clientName == "" {
			clientName = client.ID
		}
		data := ConsentPageData{
			AppName:     s.config.GetAppName(),
			ClientName:  clientName,
			RedirectURI: resolved.RedirectURI,
			Action:      RouteAuthorize,
			Fields:      hiddenFields(resolved.Values()),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		w.Header().Set("Cache-Control", "no-store")
		if err := consent.Execute(w, data); err != nil {
			log.Err(err).Msg("rendering consent page")
		}
	}
}

// AuthorizePost handles the consent form. Approval redirects with a code,
// denial redirects with access_denied.
func (s *Server) AuthorizePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := r.ParseForm(); err != nil {
			s.renderError(w, http.StatusBadRequest, "Invalid form data", "The authorization form could not be read.")
			return
		}
		params := oauthmodel.ParseAuthorizationParameters(r.PostForm)

		if r.PostForm.Get("action") == "deny" {
			_, resolved, err := s.auth.ValidateAuthorizeRequest(params)
			if err != nil {
				s.renderAuthorizeError(w, err)
				return
			}
			http.Redirect(w, r, deniedURL(resolved.RedirectURI, resolved.State), http.StatusFound)
			return
		}

		redirect, err := s.auth.Approve(params)
		if err != nil {
			s.renderAuthorizeError(w, err)
			return
		}
		log.Info().Str("client_id", params.ClientID).Msg("authorization approved")
		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

// Token handles the token endpoint for form or JSON bodies.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseTokenRequest(w, r)
		if err != nil {
			writeJSONError(w, oauthmodel.ErrorCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := s.auth.Token(req)
		if err != nil {
			oe := auth.AsOAuthError(err)
			if oe.Status == http.StatusUnauthorized {
				if _, _, basic := r.BasicAuth(); basic {
					w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
				}
			}
			log.Debug().Err(err).Str("grant_type", string(req.GrantType)).Str("client_id", req.ClientID).Msg("token request rejected")
			writeOAuthError(w, oe)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// parseTokenRequest reads a token request from a form or JSON body. Client
// credentials in an HTTP Basic header fill in whatever the body left out.
func parseTokenRequest(w http.ResponseWriter, r *http.Request) (oauthmodel.TokenRequest, error) {
	var req oauthmodel.TokenRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errors.New("request body is not valid JSON")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, errors.New("failed to parse form data")
		}
		req = oauthmodel.TokenRequest{
			GrantType:    oauthmodel.GrantType(r.PostForm.Get("grant_type")),
			ClientID:     r.PostForm.Get("client_id"),
			ClientSecret: r.PostForm.Get("client_secret"),
			Code:         r.PostForm.Get("code"),
			CodeVerifier: r.PostForm.Get("code_verifier"),
			RedirectURI:  r.PostForm.Get("redirect_uri"),
			RefreshToken: r.PostForm.Get("refresh_token"),
		}
	}

	if id, secret, ok := r.BasicAuth(); ok {
		id, _ = url.QueryUnescape(id)
		secret, _ = url.QueryUnescape(secret)
		if req.ClientID != "" && req.ClientID != id {
			return req, errors.New("client_id does not match the Authorization header")
		}
		req.ClientID = id
		if req.ClientSecret == "" {
			req.ClientSecret = secret
		}
	}
	return req, nil
}

func (s *Server) renderAuthorizeError(w http.ResponseWriter, err error) {
	oe := auth.AsOAuthError(err)
	if oe.Status >= http.StatusInternalServerError {
		log.Err(err).Msg("authorize")
		s.renderError(w, oe.Status, "Something went wrong", "The authorization request could not be completed.")
		return
	}
	s.renderError(w, oe.Status, "Authorization request rejected", oe.Error())
}

func deniedURL(redirectURI, state string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("error", "access_denied")
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func hiddenFields(values url.Values) []HiddenField {
	fields := make([]HiddenField, 0, len(values))
	for name := range values {
		fields = append(fields, HiddenField{Name: name, Value: values.Get(name)})
	}
	slices.SortFunc(fields, func(a, b HiddenField) int {
		return strings.Compare(a.Name, b.Name)
	})
	return fields
}

// writeOAuthError writes an OAuth2 error response
func writeOAuthError(w http.ResponseWriter, err error) {
	oe := auth.AsOAuthError(err)
	if oe.Status >= http.StatusInternalServerError {
		log.Err(err).Msg("oauth endpoint failed")
	}
	writeJSONError(w, oe.Code, oe.Description, oe.Status)
}

// writeJSONError writes an OAuth2 error body
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(oauthmodel.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
