package oauthmodel_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/feedback-mcp-gateway/oauthmodel"
	"github.com/stretchr/testify/require"
)

const testCodeChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

func validValues() url.Values {
	v := url.Values{}
	v.Set("client_id", "c1")
	v.Set("redirect_uri", "https://client.example/cb")
	v.Set("code_challenge", testCodeChallenge)
	v.Set("state", "xyz")
	return v
}

func TestParseAuthorizationParameters(t *testing.T) {
	p := oauthmodel.ParseAuthorizationParameters(validValues())
	require.Equal(t, oauthmodel.CodeMethodTypeS256, p.CodeChallengeMethod)
	require.NoError(t, p.Validate())

	round := oauthmodel.ParseAuthorizationParameters(p.Values())
	require.Equal(t, p, round)
}

func TestAuthorizationParameters_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(url.Values)
		err    error
	}{
		{"missing client", func(v url.Values) { v.Del("client_id") }, oauthmodel.ErrMissingClientID},
		{"token response type", func(v url.Values) { v.Set("response_type", "token") }, oauthmodel.ErrInvalidResponseType},
		{"missing challenge", func(v url.Values) { v.Del("code_challenge") }, oauthmodel.ErrMissingCodeChallenge},
		{"short challenge", func(v url.Values) { v.Set("code_challenge", "abc") }, oauthmodel.ErrInvalidCodeChallenge},
		{"plain method", func(v url.Values) { v.Set("code_challenge_method", "plain") }, oauthmodel.ErrInvalidCodeChallengeMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validValues()
			tt.mutate(v)
			require.ErrorIs(t, oauthmodel.ParseAuthorizationParameters(v).Validate(), tt.err)
		})
	}
}

func TestIsAbsoluteURI(t *testing.T) {
	require.True(t, oauthmodel.IsAbsoluteURI("https://client.example/cb"))
	require.True(t, oauthmodel.IsAbsoluteURI("http://localhost:3000/callback"))
	require.True(t, oauthmodel.IsAbsoluteURI("com.example.app:/oauth"))
	require.False(t, oauthmodel.IsAbsoluteURI("/cb"))
	require.False(t, oauthmodel.IsAbsoluteURI("https:///cb"))
	require.False(t, oauthmodel.IsAbsoluteURI("https://client.example/cb#frag"))
	require.False(t, oauthmodel.IsAbsoluteURI(""))
}
