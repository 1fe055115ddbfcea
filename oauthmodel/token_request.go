package oauthmodel

// TokenRequest holds the parameters of a token endpoint request, from either
// a form or a JSON body.
type TokenRequest struct {
	GrantType GrantType `json:"grant_type"`

	// ClientID and ClientSecret may also arrive through HTTP Basic auth.
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	// authorization_code grant
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`

	// refresh_token grant
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by both grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}
