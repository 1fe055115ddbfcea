package oauthmodel

// AuthorizationServerMetadata is the RFC 8414 discovery document.
type AuthorizationServerMetadata struct {
	Issuer                            string           `json:"issuer"`
	AuthorizationEndpoint             string           `json:"authorization_endpoint"`
	TokenEndpoint                     string           `json:"token_endpoint"`
	RegistrationEndpoint              string           `json:"registration_endpoint"`
	ResponseTypesSupported            []ResponseType   `json:"response_types_supported"`
	GrantTypesSupported               []GrantType      `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported []AuthMethodType `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []CodeMethodType `json:"code_challenge_methods_supported"`
}

// ProtectedResourceMetadata is the RFC 9728 document for the MCP endpoint.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
}
