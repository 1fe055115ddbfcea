package auth_test

import (
	"testing"

	"github.com/jrsteele09/feedback-mcp-gateway/auth"
	"github.com/jrsteele09/feedback-mcp-gateway/clients"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidatePKCE(t *testing.T) {
	v := auth.NewValidator()

	t.Run("valid S256", func(t *testing.T) {
		require.NoError(t, v.ValidatePKCE(testCodeVerifier, testCodeChallenge, "S256"))
	})

	t.Run("plain rejected", func(t *testing.T) {
		err := v.ValidatePKCE(testCodeChallenge, testCodeChallenge, "plain")
		require.Error(t, err)
		require.Contains(t, err.Error(), "must be 'S256'")
	})

	t.Run("missing verifier", func(t *testing.T) {
		err := v.ValidatePKCE("", testCodeChallenge, "S256")
		require.Error(t, err)
		require.Contains(t, err.Error(), "required")
	})

	t.Run("verifier too short", func(t *testing.T) {
		err := v.ValidatePKCE("tooshort", testCodeChallenge, "S256")
		require.Error(t, err)
		require.Contains(t, err.Error(), "length must be between")
	})

	t.Run("mismatch", func(t *testing.T) {
		err := v.ValidatePKCE(otherCodeVerifier, testCodeChallenge, "S256")
		require.Error(t, err)
		require.Contains(t, err.Error(), "does not match")
	})
}

func TestValidator_ValidateClientCredentials(t *testing.T) {
	v := auth.NewValidator()

	confidential := &clients.Client{ID: "confidential"}
	require.NoError(t, confidential.SetSecret("secret123"))
	public := &clients.Client{ID: "public"}

	t.Run("valid confidential client", func(t *testing.T) {
		require.NoError(t, v.ValidateClientCredentials(confidential, "secret123"))
	})

	t.Run("confidential without secret", func(t *testing.T) {
		err := v.ValidateClientCredentials(confidential, "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "client_secret is required")
	})

	t.Run("confidential with wrong secret", func(t *testing.T) {
		require.Error(t, v.ValidateClientCredentials(confidential, "nope"))
	})

	t.Run("public client needs no secret", func(t *testing.T) {
		require.NoError(t, v.ValidateClientCredentials(public, ""))
	})

	t.Run("nil client", func(t *testing.T) {
		require.Error(t, v.ValidateClientCredentials(nil, ""))
	})
}

func TestValidator_ResolveRedirectURI(t *testing.T) {
	v := auth.NewValidator()
	one := &clients.Client{RedirectURIs: []string{testRedirectURI}}
	two := &clients.Client{RedirectURIs: []string{testRedirectURI, "https://client.example/cb2"}}
	none := &clients.Client{}

	got, err := v.ResolveRedirectURI(one, "")
	require.NoError(t, err)
	require.Equal(t, testRedirectURI, got)

	_, err = v.ResolveRedirectURI(two, "")
	require.Error(t, err)

	got, err = v.ResolveRedirectURI(two, "https://client.example/cb2")
	require.NoError(t, err)
	require.Equal(t, "https://client.example/cb2", got)

	_, err = v.ResolveRedirectURI(one, "https://client.example/cb/")
	require.Error(t, err)

	_, err = v.ResolveRedirectURI(none, "relative/path")
	require.Error(t, err)

	got, err = v.ResolveRedirectURI(none, "http://127.0.0.1:4000/cb")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:4000/cb", got)
}
