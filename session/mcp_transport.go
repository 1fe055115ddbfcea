package session

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
	"github.com/mark3labs/mcp-go/server"
)

// ServerFactory builds a fresh MCP server instance with all tools registered.
type ServerFactory func() *server.MCPServer

// NewMCPTransportFactory returns a factory of streamable HTTP transports, each
// with its own MCP server instance. In stateless mode transports issue no
// session ids and the hooks are never called.
func NewMCPTransportFactory(newServer ServerFactory, endpointPath string, stateless bool) TransportFactory {
	return func(hooks Hooks) (Transport, error) {
		mcpServer := newServer()
		if mcpServer == nil {
			return nil, errors.Wrapf(errors.ErrInternal, "[session.NewMCPTransportFactory] server factory returned nil")
		}

		ids := &sessionIDManager{hooks: hooks}
		opts := []server.StreamableHTTPOption{server.WithEndpointPath(endpointPath)}
		if stateless {
			opts = append(opts, server.WithStateLess(true))
		} else {
			opts = append(opts, server.WithSessionIdManager(ids))
		}

		return &mcpTransport{
			handler: server.NewStreamableHTTPServer(mcpServer, opts...),
			ids:     ids,
		}, nil
	}
}

type mcpTransport struct {
	handler *server.StreamableHTTPServer
	ids     *sessionIDManager
}

var _ Transport = (*mcpTransport)(nil)

func (t *mcpTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.handler.ServeHTTP(w, r)
}

func (t *mcpTransport) SessionID() string {
	return t.ids.current()
}

func (t *mcpTransport) Close() error {
	t.ids.terminate()
	return nil
}

// sessionIDManager implements server.SessionIdManager for a transport that
// owns a single session.
type sessionIDManager struct {
	mu     sync.Mutex
	id     string
	closed bool
	hooks  Hooks
}

var _ server.SessionIdManager = (*sessionIDManager)(nil)

// Generate assigns the transport's session id. A repeated initialize on the
// same transport gets the same id back.
func (m *sessionIDManager) Generate() string {
	m.mu.Lock()
	if m.id != "" {
		id := m.id
		m.mu.Unlock()
		return id
	}
	m.id = uuid.New().String()
	id := m.id
	m.mu.Unlock()

	if m.hooks.OnSessionInitialized != nil {
		m.hooks.OnSessionInitialized(id)
	}
	return id
}

func (m *sessionIDManager) Validate(sessionID string) (isTerminated bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID == "" || sessionID != m.id {
		return false, errors.ErrSessionNotFound
	}
	return m.closed, nil
}

func (m *sessionIDManager) Terminate(sessionID string) (isNotAllowed bool, err error) {
	m.mu.Lock()
	owned := sessionID != "" && sessionID == m.id
	m.mu.Unlock()

	if !owned {
		return false, errors.ErrSessionNotFound
	}
	m.terminate()
	return false, nil
}

func (m *sessionIDManager) current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *sessionIDManager) terminate() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	id := m.id
	m.mu.Unlock()

	if id != "" && m.hooks.OnClosed != nil {
		m.hooks.OnClosed(id)
	}
}
