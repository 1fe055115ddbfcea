package config

import "time"

type SessionMode string

const (
	SessionModeStateful  SessionMode = "stateful"
	SessionModeStateless SessionMode = "stateless"
)

type SessionConfig interface {
	GetSessionMode() SessionMode
	GetSessionIdleTimeout() time.Duration
	GetMaxSessions() int
	GetMaintenanceInterval() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionMode() SessionMode {
	if SessionMode(GetEnv("SESSION_MODE", string(SessionModeStateful))) == SessionModeStateless {
		return SessionModeStateless
	}
	return SessionModeStateful
}

// GetSessionIdleTimeout of zero keeps sessions until the client closes them.
func (Session) GetSessionIdleTimeout() time.Duration {
	return GetEnvDuration("SESSION_IDLE_TIMEOUT", 0)
}

func (Session) GetMaxSessions() int {
	return GetEnvInt("MAX_SESSIONS", 10000)
}

func (Session) GetMaintenanceInterval() time.Duration {
	return time.Minute
}
