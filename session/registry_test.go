package session_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/feedback-mcp-gateway/session"
	"github.com/stretchr/testify/require"
)

const (
	initializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	toolsListBody  = `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`
)

// fakeTransport assigns an id on initialize and echoes it back on every other request.
type fakeTransport struct {
	id     string
	hooks  session.Hooks
	closed atomic.Bool
	served atomic.Int32
	// noID simulates a transport that rejects initialize without assigning an id.
	noID bool
	// When set, GET requests signal started and then block until hold is closed.
	started chan struct{}
	hold    chan struct{}
}

func (f *fakeTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.served.Add(1)
	if r.Method == http.MethodGet && f.hold != nil {
		close(f.started)
		<-f.hold
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Header.Get(session.HeaderSessionID) == "" {
		if f.noID {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if f.hooks.OnSessionInitialized != nil {
			f.hooks.OnSessionInitialized(f.id)
		}
		w.Header().Set(session.HeaderSessionID, f.id)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
		return
	}
	if r.Method == http.MethodDelete {
		_ = f.Close()
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("X-Served-By", f.id)
	w.WriteHeader(http.StatusOK)
}

func (f *fakeTransport) SessionID() string {
	if f.noID {
		return ""
	}
	return f.id
}

func (f *fakeTransport) Close() error {
	if f.closed.CompareAndSwap(false, true) && f.hooks.OnClosed != nil && !f.noID {
		f.hooks.OnClosed(f.id)
	}
	return nil
}

type fakeFactory struct {
	mu         sync.Mutex
	seq        int
	transports []*fakeTransport
	noID       bool
}

func (f *fakeFactory) New(hooks session.Hooks) (session.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTransport{id: fmt.Sprintf("session-%d", f.seq), hooks: hooks, noID: f.noID}
	f.transports = append(f.transports, t)
	return t, nil
}

func (f *fakeFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

func post(t *testing.T, h http.Handler, body, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set(session.HeaderSessionID, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRPCError(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var body struct {
		JSONRPC string `json:"jsonrpc"`
		Error   struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		ID any `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "2.0", body.JSONRPC)
	require.Nil(t, body.ID)
	return body.Error.Code, body.Error.Message
}

func TestRegistry_InitializeCreatesSession(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New)

	rec := post(t, reg, initializeBody, "")
	require.Equal(t, http.StatusOK, rec.Code)

	id := rec.Header().Get(session.HeaderSessionID)
	require.Equal(t, "session-1", id)
	require.True(t, reg.Has(id))
	require.Equal(t, 1, reg.Len())

	t.Run("follow-up requests route to the same transport", func(t *testing.T) {
		rec := post(t, reg, toolsListBody, id)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, id, rec.Header().Get("X-Served-By"))
		require.Equal(t, 1, factory.Created())
	})

	t.Run("batch containing initialize creates a session", func(t *testing.T) {
		rec := post(t, reg, "["+initializeBody+"]", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "session-2", rec.Header().Get(session.HeaderSessionID))
		require.Equal(t, 2, reg.Len())
	})
}

func TestRegistry_UnknownSessionIDIsNotFound(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New)

	for name, id := range map[string]string{
		"unknown":    "does-not-exist",
		"too long":   strings.Repeat("a", session.MaxSessionIDLength+1),
		"whitespace": "bad id",
	} {
		t.Run(name, func(t *testing.T) {
			// An initialize under a caller-chosen id must not create a session.
			rec := post(t, reg, initializeBody, id)
			require.Equal(t, http.StatusNotFound, rec.Code)

			code, msg := decodeRPCError(t, rec)
			require.Equal(t, -32001, code)
			require.Equal(t, "Session not found", msg)
		})
	}
	require.Zero(t, factory.Created())
	require.Zero(t, reg.Len())
}

func TestRegistry_MissingSessionIDOnNonInitialize(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New)

	t.Run("POST without initialize", func(t *testing.T) {
		rec := post(t, reg, toolsListBody, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		code, msg := decodeRPCError(t, rec)
		require.Equal(t, -32000, code)
		require.Equal(t, "Bad Request: No valid session ID provided", msg)
	})

	t.Run("GET without session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		rec := httptest.NewRecorder()
		reg.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := post(t, reg, "{not json", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	require.Zero(t, factory.Created())
}

func TestRegistry_DeleteTearsDownSession(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New)

	id := post(t, reg, initializeBody, "").Header().Get(session.HeaderSessionID)
	require.True(t, reg.Has(id))

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	req.Header.Set(session.HeaderSessionID, id)
	rec := httptest.NewRecorder()
	reg.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, reg.Has(id))
	require.True(t, factory.transports[0].closed.Load())

	rec = post(t, reg, toolsListBody, id)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistry_TransportWithoutIDIsDiscarded(t *testing.T) {
	factory := &fakeFactory{noID: true}
	reg := session.NewRegistry(factory.New)

	rec := post(t, reg, initializeBody, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, reg.Len())
	require.True(t, factory.transports[0].closed.Load())
}

func TestRegistry_MaxSessions(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New, session.WithMaxSessions(2))

	first := post(t, reg, initializeBody, "").Header().Get(session.HeaderSessionID)
	post(t, reg, initializeBody, "")
	require.Equal(t, 2, reg.Len())

	rec := post(t, reg, initializeBody, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, 2, factory.Created())

	require.True(t, reg.Terminate(first))
	rec = post(t, reg, initializeBody, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, reg.Len())
}

func TestRegistry_SweepClosesIdleSessions(t *testing.T) {
	factory := &fakeFactory{}
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	reg := session.NewRegistry(factory.New, session.WithIdleTimeout(10*time.Minute), session.WithNowFunc(clock))

	idle := post(t, reg, initializeBody, "").Header().Get(session.HeaderSessionID)
	active := post(t, reg, initializeBody, "").Header().Get(session.HeaderSessionID)

	advance(6 * time.Minute)
	post(t, reg, toolsListBody, active)
	require.Zero(t, reg.Sweep())

	advance(5 * time.Minute)
	require.Equal(t, 1, reg.Sweep())
	require.False(t, reg.Has(idle))
	require.True(t, reg.Has(active))
	require.True(t, factory.transports[0].closed.Load())
	require.False(t, factory.transports[1].closed.Load())
}

func TestRegistry_SweepSkipsOpenStreams(t *testing.T) {
	factory := &fakeFactory{}
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	reg := session.NewRegistry(factory.New, session.WithIdleTimeout(10*time.Minute), session.WithNowFunc(clock))
	id := post(t, reg, initializeBody, "").Header().Get(session.HeaderSessionID)

	tr := factory.transports[0]
	tr.started = make(chan struct{})
	tr.hold = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		req.Header.Set(session.HeaderSessionID, id)
		reg.ServeHTTP(httptest.NewRecorder(), req)
	}()
	<-tr.started

	advance(30 * time.Minute)
	require.Zero(t, reg.Sweep())
	require.True(t, reg.Has(id))

	close(tr.hold)
	<-done

	// The stream ending counts as activity.
	advance(9 * time.Minute)
	require.Zero(t, reg.Sweep())
	advance(2 * time.Minute)
	require.Equal(t, 1, reg.Sweep())
	require.False(t, reg.Has(id))
}

func TestRegistry_OversizedBodyIsRejected(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New, session.WithMaxBodySize(64))

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"pad":"` + strings.Repeat("x", 256) + `"}}`
	rec := post(t, reg, body, "")
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	code, _ := decodeRPCError(t, rec)
	require.Equal(t, -32600, code)
	require.Zero(t, factory.Created())
	require.Zero(t, reg.Len())
}

func TestRegistry_SweepDisabledWithoutTimeout(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New)
	post(t, reg, initializeBody, "")
	require.Zero(t, reg.Sweep())
	require.Equal(t, 1, reg.Len())
}

func TestRegistry_ConcurrentInitializeYieldsDistinctSessions(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New)

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- post(t, reg, initializeBody, "").Header().Get(session.HeaderSessionID)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{})
	for id := range ids {
		require.NotEmpty(t, id)
		seen[id] = struct{}{}
	}
	require.Len(t, seen, n)
	require.Equal(t, n, reg.Len())
}

func TestRegistry_StatelessSharesOneTransport(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New, session.WithStateless())
	require.True(t, reg.Stateless())

	post(t, reg, toolsListBody, "")
	post(t, reg, toolsListBody, "")
	post(t, reg, initializeBody, "")
	require.Equal(t, 1, factory.Created())
	require.EqualValues(t, 3, factory.transports[0].served.Load())
	require.Zero(t, reg.Len())
}

func TestRegistry_CloseTearsDownEverything(t *testing.T) {
	factory := &fakeFactory{}
	reg := session.NewRegistry(factory.New)
	post(t, reg, initializeBody, "")
	post(t, reg, initializeBody, "")

	reg.Close()
	require.Zero(t, reg.Len())
	for _, tr := range factory.transports {
		require.True(t, tr.closed.Load())
	}
}
