package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar      = "PORT"
	appNameVar      = "APP_NAME"
	baseURLVar      = "BASE_URL"
	logLevelVar     = "LOG_LEVEL"
	transportVar    = "MCP_TRANSPORT"
	mcpPathVar      = "MCP_PATH"
	metricsEnvVar   = "METRICS_ENABLED"
	defaultBaseURL  = "http://localhost:8080"
	defaultMCPPath  = "/mcp"
	defaultAppName  = "Feedback MCP"
	defaultLogLevel = "info"
)

// TransportType selects how the MCP server is exposed.
type TransportType string

const (
	TransportHTTP  TransportType = "http"
	TransportStdio TransportType = "stdio"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	return normalisePort(GetEnv(portEnvVar, "8080"))
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, defaultAppName)
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the public base URL of the gateway (e.g., "https://feedback-mcp.example.com").
// Issuer, endpoint URLs and the protected resource metadata are built from it.
func (EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, defaultBaseURL), "/")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, defaultLogLevel)
}

func (EnvVars) GetTransport() TransportType {
	switch TransportType(strings.ToLower(GetEnv(transportVar, string(TransportHTTP)))) {
	case TransportStdio:
		return TransportStdio
	default:
		return TransportHTTP
	}
}

func (EnvVars) GetMCPPath() string {
	path := GetEnv(mcpPathVar, defaultMCPPath)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func (EnvVars) GetMetricsEnabled() bool {
	return GetEnvBool(metricsEnvVar, true)
}

func normalisePort(port string) string {
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return v
}

func GetEnvInt(envVar string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return v
}

func GetEnvFloat(envVar string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(envVar), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvDuration accepts Go duration strings ("90s", "15m").
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvList splits a comma separated value, dropping blanks.
func GetEnvList(envVar string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(envVar), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
