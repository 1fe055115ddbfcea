package oauthmodel

// ResponseType represents the OAuth 2.0 response type.
type ResponseType string

const (
	// CodeResponseType is the only response type the authorization endpoint issues.
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256: code_challenge = BASE64URL(SHA256(code_verifier)). "plain" is not accepted.
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	AuthorizationCodeGrant GrantType = "authorization_code"
	RefreshTokenGrant      GrantType = "refresh_token"
)

// AuthMethodType is the token endpoint client authentication method.
type AuthMethodType string

const (
	AuthMethodNone              AuthMethodType = "none"
	AuthMethodClientSecretPost  AuthMethodType = "client_secret_post"
	AuthMethodClientSecretBasic AuthMethodType = "client_secret_basic"
)

// TokenTypeBearer is the token_type of every token response.
const TokenTypeBearer = "Bearer"

// Error codes used on the wire.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeInvalidRedirectURI   = "invalid_redirect_uri"
	ErrorCodeUnauthorized         = "unauthorized"
	ErrorCodeServerError          = "server_error"
	ErrorCodeTooManyRequests      = "too_many_requests"
)

// Endpoint paths advertised in the discovery documents.
const (
	PathAuthorize                 = "/authorize"
	PathToken                     = "/token"
	PathRegister                  = "/register"
	PathAuthorizationServerConfig = "/.well-known/oauth-authorization-server"
	PathProtectedResourceConfig   = "/.well-known/oauth-protected-resource"
)
