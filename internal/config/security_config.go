package config

type SecurityConfig interface {
	GetAuthEnabled() bool
	GetStaticAPIKeys() []string
	GetRateLimit() (rps float64, burst int)
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAuthEnabled gates the MCP endpoint behind bearer tokens. Only applies to the http transport.
func (Security) GetAuthEnabled() bool {
	return GetEnvBool("AUTH_ENABLED", true)
}

// GetStaticAPIKeys returns pre-shared keys accepted as bearer tokens alongside OAuth access tokens.
func (Security) GetStaticAPIKeys() []string {
	return GetEnvList("STATIC_API_KEYS")
}

// GetRateLimit applies per client IP on /register and /token. rps <= 0 disables limiting.
func (Security) GetRateLimit() (float64, int) {
	return GetEnvFloat("RATE_LIMIT_RPS", 0), GetEnvInt("RATE_LIMIT_BURST", 10)
}
