package config

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	SessionConfig
	FeedbackConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetLogLevel() string
	GetTransport() TransportType
	GetMCPPath() string
	GetMetricsEnabled() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
	GetExposedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Session
	Feedback
	overrides
}

// Option overrides a value that would otherwise come from the environment.
type Option func(*overrides)

// overrides holds values set from the command line; they win over env vars.
type overrides struct {
	port      string
	baseURL   string
	logLevel  string
	transport TransportType
}

func WithPort(port string) Option {
	return func(o *overrides) { o.port = port }
}

func WithBaseURL(baseURL string) Option {
	return func(o *overrides) { o.baseURL = baseURL }
}

func WithLogLevel(level string) Option {
	return func(o *overrides) { o.logLevel = level }
}

func WithTransport(transport TransportType) Option {
	return func(o *overrides) { o.transport = transport }
}

func New(options ...Option) Config {
	c := mainConfig{}
	for _, opt := range options {
		opt(&c.overrides)
	}
	return c
}

func (c mainConfig) GetPort() string {
	if c.overrides.port != "" {
		return normalisePort(c.overrides.port)
	}
	return c.EnvVars.GetPort()
}

func (c mainConfig) GetBaseURL() string {
	if c.overrides.baseURL != "" {
		return c.overrides.baseURL
	}
	return c.EnvVars.GetBaseURL()
}

func (c mainConfig) GetLogLevel() string {
	if c.overrides.logLevel != "" {
		return c.overrides.logLevel
	}
	return c.EnvVars.GetLogLevel()
}

func (c mainConfig) GetTransport() TransportType {
	if c.overrides.transport != "" {
		return c.overrides.transport
	}
	return c.EnvVars.GetTransport()
}
