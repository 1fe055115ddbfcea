package oauthmodel

import (
	"net/url"
	"strings"
)

// AuthorizationParameters holds the parameters of an authorize request. The
// consent page receives them as a query string and posts the same set back.
type AuthorizationParameters struct {
	// ClientID identifies the registered client requesting authorization.
	ClientID string

	// ResponseType must be "code" when supplied.
	ResponseType ResponseType

	// RedirectURI is where the code is delivered. Must exactly match a
	// registered URI when the client registered any.
	RedirectURI string

	// State is echoed back on the redirect unchanged.
	State string

	// CodeChallenge is BASE64URL(SHA256(code_verifier)).
	CodeChallenge string

	// CodeChallengeMethod defaults to S256, the only supported method.
	CodeChallengeMethod CodeMethodType

	// Scope is carried through the consent page but not enforced.
	Scope string
}

// ParseAuthorizationParameters reads the parameter set from query or form values.
func ParseAuthorizationParameters(values url.Values) *AuthorizationParameters {
	p := &AuthorizationParameters{
		ClientID:            strings.TrimSpace(values.Get("client_id")),
		ResponseType:        ResponseType(values.Get("response_type")),
		RedirectURI:         values.Get("redirect_uri"),
		State:               values.Get("state"),
		CodeChallenge:       values.Get("code_challenge"),
		CodeChallengeMethod: CodeMethodType(values.Get("code_challenge_method")),
		Scope:               values.Get("scope"),
	}
	if p.CodeChallengeMethod == "" {
		p.CodeChallengeMethod = CodeMethodTypeS256
	}
	return p
}

// Validate checks the parameters that do not depend on the client record.
// The redirect URI is checked against the client by the authorization service.
func (p *AuthorizationParameters) Validate() error {
	if p.ClientID == "" {
		return ErrMissingClientID
	}
	if !responseTypeValid(p.ResponseType) {
		return ErrInvalidResponseType
	}
	if strings.TrimSpace(p.CodeChallenge) == "" {
		return ErrMissingCodeChallenge
	}
	// RFC 7636: 43..128 characters of the unreserved set
	if len(p.CodeChallenge) < 43 || len(p.CodeChallenge) > 128 {
		return ErrInvalidCodeChallenge
	}
	if p.CodeChallengeMethod != CodeMethodTypeS256 {
		return ErrInvalidCodeChallengeMethod
	}
	return nil
}

// Values returns the parameter set for re-submission through the consent form.
func (p *AuthorizationParameters) Values() url.Values {
	v := url.Values{}
	v.Set("client_id", p.ClientID)
	v.Set("redirect_uri", p.RedirectURI)
	v.Set("code_challenge", p.CodeChallenge)
	v.Set("code_challenge_method", string(p.CodeChallengeMethod))
	if p.ResponseType != "" {
		v.Set("response_type", string(p.ResponseType))
	}
	if p.State != "" {
		v.Set("state", p.State)
	}
	if p.Scope != "" {
		v.Set("scope", p.Scope)
	}
	return v
}

func responseTypeValid(responseType ResponseType) bool {
	if strings.TrimSpace(string(responseType)) == "" {
		return true
	}
	return responseType == CodeResponseType
}

// IsAbsoluteURI reports whether uri has a scheme and, for http(s), a host.
func IsAbsoluteURI(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil || !u.IsAbs() || u.Fragment != "" {
		return false
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return false
	}
	return true
}
