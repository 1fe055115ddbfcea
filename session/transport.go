package session

import "net/http"

// HeaderSessionID carries the opaque session identifier on every request after initialize.
const HeaderSessionID = "Mcp-Session-Id"

// Transport is a protocol transport bound to one MCP server instance. A
// stateful transport serves exactly one session; its id is assigned while the
// initialize request is being handled.
type Transport interface {
	http.Handler
	// SessionID is empty until the transport has assigned one.
	SessionID() string
	Close() error
}

// Hooks let the registry observe a transport's session lifecycle.
type Hooks struct {
	// OnSessionInitialized runs once, as soon as the transport has picked an id
	// and before the initialize response is written.
	OnSessionInitialized func(sessionID string)
	// OnClosed runs once when the session ends for any reason.
	OnClosed func(sessionID string)
}

// TransportFactory provisions a new transport and server instance.
type TransportFactory func(hooks Hooks) (Transport, error)
