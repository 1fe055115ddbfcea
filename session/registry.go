package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	// MaxSessionIDLength bounds the header value accepted as a session id.
	MaxSessionIDLength = 256

	// DefaultMaxSessions is the default maximum number of concurrent sessions.
	DefaultMaxSessions = 10000

	// DefaultSweepInterval is how often Run looks for idle sessions.
	DefaultSweepInterval = time.Minute

	// DefaultMaxBodySize caps the JSON-RPC request body read from any MCP request.
	DefaultMaxBodySize = 4 << 20
)

// JSON-RPC error codes written by the registry itself.
const (
	codeNoSession       = -32000
	codeSessionNotFound = -32001
	codeInvalidRequest  = -32600
	codeInternalError   = -32603
)

// Registry maps session ids to live transports. It routes requests that carry
// a known id, provisions a new transport for each initialize request without
// one, and rejects everything else. It never creates a session under an id the
// caller chose.
type Registry struct {
	factory TransportFactory

	mu       sync.RWMutex
	sessions map[string]*entry
	pending  int

	stateless  bool
	sharedOnce sync.Once
	shared     Transport
	sharedErr  error

	idleTimeout   time.Duration
	sweepInterval time.Duration
	maxSessions   int
	maxBodySize   int64
	nowFunc       func() time.Time
}

type entry struct {
	transport  Transport
	createdAt  time.Time
	lastActive atomic.Int64 // unix nanos
	inFlight   atomic.Int32 // open requests, including long-lived GET streams
}

// Option configures a Registry.
type Option func(*Registry)

// WithStateless serves every request from one shared transport with no session ids.
func WithStateless() Option {
	return func(r *Registry) {
		r.stateless = true
	}
}

// WithIdleTimeout closes sessions that have seen no request for d. Zero disables idle eviction.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.idleTimeout = d
	}
}

// WithSweepInterval sets how often Run checks for idle sessions.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.sweepInterval = d
		}
	}
}

// WithMaxSessions caps concurrent sessions. Zero or less means unlimited.
func WithMaxSessions(n int) Option {
	return func(r *Registry) {
		r.maxSessions = n
	}
}

// WithMaxBodySize caps request bodies at n bytes. Zero or less keeps the default.
func WithMaxBodySize(n int64) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxBodySize = n
		}
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(r *Registry) {
		r.nowFunc = now
	}
}

func NewRegistry(factory TransportFactory, options ...Option) *Registry {
	r := &Registry{
		factory:       factory,
		sessions:      make(map[string]*entry),
		maxSessions:   DefaultMaxSessions,
		sweepInterval: DefaultSweepInterval,
		maxBodySize:   DefaultMaxBodySize,
		nowFunc:       time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Stateless reports whether the registry runs without sessions.
func (r *Registry) Stateless() bool {
	return r.stateless
}

func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Body != nil {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxBodySize)
	}

	if r.stateless {
		r.serveShared(w, req)
		return
	}

	if sessionID := req.Header.Get(HeaderSessionID); sessionID != "" {
		r.serveExisting(w, req, sessionID)
		return
	}

	if req.Method != http.MethodPost {
		writeJSONRPCError(w, http.StatusBadRequest, codeNoSession, "Bad Request: No valid session ID provided")
		return
	}
	initialize, err := isInitializeRequest(req)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONRPCError(w, http.StatusRequestEntityTooLarge, codeInvalidRequest, "Request body too large")
			return
		}
	}
	if !initialize {
		writeJSONRPCError(w, http.StatusBadRequest, codeNoSession, "Bad Request: No valid session ID provided")
		return
	}
	r.serveNew(w, req)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Has reports whether sessionID names a live session.
func (r *Registry) Has(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// Terminate closes and forgets a session. It reports whether the session existed.
func (r *Registry) Terminate(sessionID string) bool {
	e := r.remove(sessionID)
	if e == nil {
		return false
	}
	if err := e.transport.Close(); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("closing session transport")
	}
	return true
}

// Sweep closes sessions idle for longer than the idle timeout and returns how
// many it closed. Sessions with a request still open are never idle.
func (r *Registry) Sweep() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.nowFunc().Add(-r.idleTimeout).UnixNano()

	var idle []string
	r.mu.RLock()
	for id, e := range r.sessions {
		if e.inFlight.Load() == 0 && e.lastActive.Load() <= cutoff {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, id := range idle {
		if r.Terminate(id) {
			log.Debug().Str("session_id", id).Msg("idle session closed")
			n++
		}
	}
	return n
}

// Run sweeps idle sessions until ctx is cancelled, then closes every session.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close tears down every session and the shared transport.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for id, e := range all {
		if err := e.transport.Close(); err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("closing session transport")
		}
	}
	if r.shared != nil {
		_ = r.shared.Close()
	}
}

func (r *Registry) serveExisting(w http.ResponseWriter, req *http.Request, sessionID string) {
	e := r.lookup(sessionID)
	if e == nil {
		log.Debug().Str("session_id", truncate(sessionID)).Msg("request for unknown session")
		writeJSONRPCError(w, http.StatusNotFound, codeSessionNotFound, "Session not found")
		return
	}
	e.inFlight.Add(1)
	e.lastActive.Store(r.nowFunc().UnixNano())

	e.transport.ServeHTTP(w, req)

	e.lastActive.Store(r.nowFunc().UnixNano())
	e.inFlight.Add(-1)

	if req.Method == http.MethodDelete {
		r.Terminate(sessionID)
	}
}

func (r *Registry) serveNew(w http.ResponseWriter, req *http.Request) {
	if !r.reserve() {
		writeJSONRPCError(w, http.StatusServiceUnavailable, codeNoSession, errors.ErrTooManySessions.Error())
		return
	}
	defer r.release()

	var t Transport
	t, err := r.factory(Hooks{
		OnSessionInitialized: func(sessionID string) { r.register(sessionID, t) },
		OnClosed:             func(sessionID string) { r.remove(sessionID) },
	})
	if err != nil {
		log.Err(err).Msg("creating session transport")
		writeJSONRPCError(w, http.StatusInternalServerError, codeInternalError, "Internal server error")
		return
	}

	t.ServeHTTP(w, req)

	// A transport that never produced an id holds no session worth keeping.
	if id := t.SessionID(); id == "" || !r.Has(id) {
		_ = t.Close()
	}
}

func (r *Registry) serveShared(w http.ResponseWriter, req *http.Request) {
	r.sharedOnce.Do(func() {
		r.shared, r.sharedErr = r.factory(Hooks{})
	})
	if r.sharedErr != nil {
		log.Err(r.sharedErr).Msg("creating shared transport")
		writeJSONRPCError(w, http.StatusInternalServerError, codeInternalError, "Internal server error")
		return
	}
	r.shared.ServeHTTP(w, req)
}

func (r *Registry) lookup(sessionID string) *entry {
	if !validSessionID(sessionID) {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID]
}

func (r *Registry) register(sessionID string, t Transport) {
	now := r.nowFunc()
	e := &entry{transport: t, createdAt: now}
	e.lastActive.Store(now.UnixNano())

	r.mu.Lock()
	_, exists := r.sessions[sessionID]
	if !exists {
		r.sessions[sessionID] = e
	}
	r.mu.Unlock()

	if exists {
		log.Error().Str("session_id", sessionID).Msg("duplicate session id generated, keeping the original")
		return
	}
	log.Debug().Str("session_id", sessionID).Msg("session registered")
}

func (r *Registry) remove(sessionID string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(r.sessions, sessionID)
	log.Debug().Str("session_id", sessionID).Msg("session removed")
	return e
}

func (r *Registry) reserve() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxSessions > 0 && len(r.sessions)+r.pending >= r.maxSessions {
		return false
	}
	r.pending++
	return true
}

func (r *Registry) release() {
	r.mu.Lock()
	r.pending--
	r.mu.Unlock()
}

// isInitializeRequest peeks at a JSON-RPC body (single message or batch) for
// an initialize call. The body is restored for the transport. Only read
// failures are returned as errors.
func isInitializeRequest(req *http.Request) (bool, error) {
	if req.Body == nil {
		return false, nil
	}
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return false, err
	}

	type message struct {
		Method string `json:"method"`
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false, nil
	}
	if trimmed[0] == '[' {
		var batch []message
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return false, nil
		}
		for _, m := range batch {
			if m.Method == "initialize" {
				return true, nil
			}
		}
		return false, nil
	}
	var m message
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return false, nil
	}
	return m.Method == "initialize", nil
}

// validSessionID accepts visible ASCII only, up to MaxSessionIDLength bytes.
func validSessionID(id string) bool {
	if id == "" || len(id) > MaxSessionIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func truncate(id string) string {
	if len(id) > 64 {
		return id[:64] + "..."
	}
	return id
}

func writeJSONRPCError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
		"id": nil,
	})
}
