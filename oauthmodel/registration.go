package oauthmodel

// RegistrationRequest is the RFC 7591 client metadata the gateway reads.
type RegistrationRequest struct {
	RedirectURIs            []string       `json:"redirect_uris,omitempty"`
	ClientName              string         `json:"client_name,omitempty"`
	TokenEndpointAuthMethod AuthMethodType `json:"token_endpoint_auth_method,omitempty"`
	GrantTypes              []GrantType    `json:"grant_types,omitempty"`
	ResponseTypes           []ResponseType `json:"response_types,omitempty"`
	Scope                   string         `json:"scope,omitempty"`
}

// WantsSecret reports whether the client asked for a confidential auth method.
func (r *RegistrationRequest) WantsSecret() bool {
	switch r.TokenEndpointAuthMethod {
	case AuthMethodClientSecretPost, AuthMethodClientSecretBasic:
		return true
	}
	return false
}

// RegistrationResponse carries the issued credentials.
type RegistrationResponse struct {
	ClientID                string         `json:"client_id"`
	ClientSecret            string         `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64          `json:"client_id_issued_at"`
	ClientSecretExpiresAt   *int64         `json:"client_secret_expires_at,omitempty"`
	RedirectURIs            []string       `json:"redirect_uris"`
	ClientName              string         `json:"client_name,omitempty"`
	GrantTypes              []GrantType    `json:"grant_types"`
	ResponseTypes           []ResponseType `json:"response_types"`
	TokenEndpointAuthMethod AuthMethodType `json:"token_endpoint_auth_method"`
}
