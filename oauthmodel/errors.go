package oauthmodel

import "errors"

var (
	ErrMissingClientID            = errors.New("client_id is required")
	ErrMissingCodeChallenge       = errors.New("code_challenge is required")
	ErrInvalidCodeChallenge       = errors.New("invalid code challenge")
	ErrInvalidCodeChallengeMethod = errors.New("code_challenge_method must be S256")
	ErrInvalidRedirectUri         = errors.New("invalid or no redirect uri")
	ErrInvalidResponseType        = errors.New("unsupported response type")
)

// ErrorResponse is the JSON error body of the OAuth and bearer endpoints.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
