package auth

import (
	"crypto/subtle"
	"fmt"

	"github.com/jrsteele09/feedback-mcp-gateway/clients"
	"github.com/jrsteele09/feedback-mcp-gateway/oauthmodel"
	"golang.org/x/oauth2"
)

// Validator holds the checks shared by the authorize and token steps.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePKCE checks verifier against the challenge stored with a code.
func (v *Validator) ValidatePKCE(verifier, challenge string, method oauthmodel.CodeMethodType) error {
	if method != oauthmodel.CodeMethodTypeS256 {
		return fmt.Errorf("code_challenge_method must be 'S256'")
	}
	if verifier == "" {
		return fmt.Errorf("code_verifier is required")
	}
	if len(verifier) < 43 || len(verifier) > 128 {
		return fmt.Errorf("code_verifier length must be between 43 and 128 characters")
	}
	computed := oauth2.S256ChallengeFromVerifier(verifier)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
		return fmt.Errorf("code_verifier does not match code_challenge")
	}
	return nil
}

// ValidateClientCredentials authenticates a client at the token endpoint.
// Public clients need no secret; a confidential client must present its own.
func (v *Validator) ValidateClientCredentials(client *clients.Client, clientSecret string) error {
	if client == nil {
		return fmt.Errorf("client not found")
	}
	if client.IsPublic() {
		return nil
	}
	if clientSecret == "" {
		return fmt.Errorf("client_secret is required for confidential clients")
	}
	if !client.CheckSecret(clientSecret) {
		return fmt.Errorf("invalid client secret")
	}
	return nil
}

// ResolveRedirectURI returns the redirect URI to use for client. An omitted URI
// falls back to the client's only registered URI. Clients that registered no
// URIs may use any absolute URI.
func (v *Validator) ResolveRedirectURI(client *clients.Client, redirectURI string) (string, error) {
	if redirectURI == "" {
		if len(client.RedirectURIs) == 1 {
			return client.RedirectURIs[0], nil
		}
		return "", fmt.Errorf("redirect_uri is required")
	}
	if !oauthmodel.IsAbsoluteURI(redirectURI) {
		return "", fmt.Errorf("redirect_uri must be an absolute URI")
	}
	if len(client.RedirectURIs) > 0 && !client.HasRedirectURI(redirectURI) {
		return "", fmt.Errorf("redirect_uri is not registered for this client")
	}
	return redirectURI, nil
}
