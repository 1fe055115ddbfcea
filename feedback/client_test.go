package feedback_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/jrsteele09/feedback-mcp-gateway/feedback"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	url     string
	key     string
	retries uint
}

func (c testConfig) GetFeedbackAPIURL() string { return c.url }

func (c testConfig) GetFeedbackAPIKey() string { return c.key }

func (c testConfig) GetFeedbackMaxRetries() uint { return c.retries }

func newTestClient(t *testing.T, srv *httptest.Server, retries uint) *feedback.Client {
	t.Helper()
	c, err := feedback.New(testConfig{url: srv.URL + "/v1/", key: "secret-key", retries: retries},
		feedback.WithHTTPClient(srv.Client()),
		feedback.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	require.NoError(t, err)
	return c
}

func TestClient_Do(t *testing.T) {
	var got struct {
		method      string
		path        string
		query       string
		auth        string
		contentType string
		body        map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				_ = json.Unmarshal(data, &got.body)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p1","title":"Dark mode"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 1)

	t.Run("GET with query", func(t *testing.T) {
		out, err := c.Do(context.Background(), http.MethodGet, "/posts", url.Values{"board_id": {"b1"}}, nil)
		require.NoError(t, err)
		require.JSONEq(t, `{"id":"p1","title":"Dark mode"}`, string(out))
		require.Equal(t, http.MethodGet, got.method)
		require.Equal(t, "/v1/posts", got.path)
		require.Equal(t, "board_id=b1", got.query)
		require.Equal(t, "Bearer secret-key", got.auth)
		require.Empty(t, got.contentType)
	})

	t.Run("POST with JSON body", func(t *testing.T) {
		_, err := c.Do(context.Background(), http.MethodPost, "posts", nil, map[string]any{"title": "Dark mode"})
		require.NoError(t, err)
		require.Equal(t, http.MethodPost, got.method)
		require.Equal(t, "/v1/posts", got.path)
		require.Equal(t, "application/json", got.contentType)
		require.Equal(t, "Dark mode", got.body["title"])
	})
}

func TestClient_EmptyBodyIsNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv, 1).Do(context.Background(), http.MethodDelete, "/posts/p1", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "null", string(out))
}

func TestClient_Retries(t *testing.T) {
	t.Run("5xx then success", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		out, err := newTestClient(t, srv, 3).Do(context.Background(), http.MethodGet, "/boards", nil, nil)
		require.NoError(t, err)
		require.Equal(t, "[]", string(out))
		require.EqualValues(t, 3, calls.Load())
	})

	t.Run("429 exhausts attempts", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"slow down"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv, 2).Do(context.Background(), http.MethodGet, "/boards", nil, nil)
		require.Error(t, err)
		var apiErr *feedback.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		require.Equal(t, "slow down", apiErr.Message)
		require.EqualValues(t, 2, calls.Load())
	})

	t.Run("4xx is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"post not found"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv, 5).Do(context.Background(), http.MethodGet, "/posts/missing", nil, nil)
		var apiErr *feedback.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		require.Equal(t, "post not found", apiErr.Message)
		require.EqualValues(t, 1, calls.Load())
	})

	t.Run("non-idempotent 5xx is not retried", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPatch} {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusBadGateway)
			}))

			_, err := newTestClient(t, srv, 3).Do(context.Background(), method, "/posts", nil, map[string]any{"title": "Dark mode"})
			var apiErr *feedback.APIError
			require.True(t, errors.As(err, &apiErr), method)
			require.Equal(t, http.StatusBadGateway, apiErr.StatusCode, method)
			require.EqualValues(t, 1, calls.Load(), method)
			srv.Close()
		}
	})

	t.Run("non-idempotent 429 is retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"p1"}`))
		}))
		defer srv.Close()

		out, err := newTestClient(t, srv, 3).Do(context.Background(), http.MethodPost, "/posts", nil, map[string]any{"title": "Dark mode"})
		require.NoError(t, err)
		require.JSONEq(t, `{"id":"p1"}`, string(out))
		require.EqualValues(t, 2, calls.Load())
	})

	t.Run("idempotent write 5xx is retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv, 3).Do(context.Background(), http.MethodDelete, "/posts/p1", nil, nil)
		require.NoError(t, err)
		require.EqualValues(t, 2, calls.Load())
	})
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := feedback.New(testConfig{url: "api/v1", retries: 1})
	require.Error(t, err)
}
