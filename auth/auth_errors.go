package auth

import (
	"net/http"

	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
	"github.com/jrsteele09/feedback-mcp-gateway/oauthmodel"
)

// OAuthError is an error with a fixed wire representation. Err carries the
// sentinel from internal/errors so callers can still match with errors.Is.
type OAuthError struct {
	Code        string
	Description string
	Status      int
	Err         error
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

func (e *OAuthError) Unwrap() error {
	return e.Err
}

// Response returns the JSON error body.
func (e *OAuthError) Response() oauthmodel.ErrorResponse {
	return oauthmodel.ErrorResponse{Error: e.Code, ErrorDescription: e.Description}
}

func invalidRequest(description string) *OAuthError {
	return &OAuthError{Code: oauthmodel.ErrorCodeInvalidRequest, Description: description, Status: http.StatusBadRequest, Err: errors.ErrInvalidRequest}
}

func invalidGrant(description string) *OAuthError {
	return &OAuthError{Code: oauthmodel.ErrorCodeInvalidGrant, Description: description, Status: http.StatusBadRequest, Err: errors.ErrInvalidGrant}
}

func invalidClient(description string) *OAuthError {
	return &OAuthError{Code: oauthmodel.ErrorCodeInvalidClient, Description: description, Status: http.StatusUnauthorized, Err: errors.ErrInvalidClient}
}

func unknownClient() *OAuthError {
	return &OAuthError{Code: oauthmodel.ErrorCodeInvalidRequest, Description: "unknown client_id", Status: http.StatusBadRequest, Err: errors.ErrUnknownClient}
}

func unsupportedGrantType(grantType oauthmodel.GrantType) *OAuthError {
	return &OAuthError{Code: oauthmodel.ErrorCodeUnsupportedGrantType, Description: "grant_type " + string(grantType) + " is not supported", Status: http.StatusBadRequest, Err: errors.ErrUnsupportedGrantType}
}

func invalidRedirectURI(description string) *OAuthError {
	return &OAuthError{Code: oauthmodel.ErrorCodeInvalidRedirectURI, Description: description, Status: http.StatusBadRequest, Err: errors.ErrInvalidRedirectURI}
}

func serverError(err error) *OAuthError {
	return &OAuthError{Code: oauthmodel.ErrorCodeServerError, Status: http.StatusInternalServerError, Err: err}
}

// AsOAuthError converts any error into an OAuthError, treating unknown errors as server errors.
func AsOAuthError(err error) *OAuthError {
	var oe *OAuthError
	if errors.As(err, &oe) {
		return oe
	}
	return serverError(err)
}
