package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 4 << 10
)

// APIError is a non-2xx answer from the feedback service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feedback API returned %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the request might succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client calls the feedback REST API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	maxTries   uint
	newBackOff func() backoff.BackOff
}

type Option func(*Client)

// WithHTTPClient sets the base client. The bearer transport is layered on top of it.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithMaxRetries sets the total number of attempts per request.
func WithMaxRetries(n uint) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxTries = n
		}
	}
}

// WithBackOff replaces the exponential backoff policy, mostly for tests.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(cl *Client) {
		cl.newBackOff = newBackOff
	}
}

func New(cfg config.FeedbackConfig, options ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.GetFeedbackAPIURL(), "/"))
	if err != nil {
		return nil, errors.Wrap(err, "[feedback.New] parsing FEEDBACK_API_URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("[feedback.New] FEEDBACK_API_URL %q is not absolute", cfg.GetFeedbackAPIURL())
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxTries:   cfg.GetFeedbackMaxRetries(),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, opt := range options {
		opt(c)
	}

	if key := cfg.GetFeedbackAPIKey(); key != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key, TokenType: "Bearer"}))
		authed.Timeout = c.httpClient.Timeout
		c.httpClient = authed
	}
	return c, nil
}

// Do sends one request and returns the raw JSON body. The body argument, when
// non-nil, is marshalled as JSON. A 429 is retried for every method. Network
// errors and 5xx are retried only for idempotent methods, since the service may
// already have applied a POST or PATCH that failed that way.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, errors.Wrap(err, "[feedback.Do] encoding request body")
		}
	}

	target := c.resolve(path, query)
	retryable := idempotent(method)
	attempt := 0
	operation := func() (json.RawMessage, error) {
		attempt++
		out, err := c.send(ctx, method, target, payload)
		if err == nil {
			return out, nil
		}
		var apiErr *APIError
		isAPIErr := errors.As(err, &apiErr)
		switch {
		case isAPIErr && apiErr.StatusCode == http.StatusTooManyRequests:
		case isAPIErr && !apiErr.Temporary(), !retryable:
			return nil, backoff.Permanent(err)
		}
		log.Warn().Err(err).Str("method", method).Str("path", path).Int("attempt", attempt).Msg("feedback request failed")
		return nil, err
	}

	out, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "[feedback.Do] %s %s", method, path)
	}
	return out, nil
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(data), nil
}

// errorMessage pulls a readable message out of an error body.
func errorMessage(data []byte, status string) string {
	var parsed struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if s, ok := parsed.Error.(string); ok && s != "" {
			return s
		}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return status
	}
	if len(text) > maxErrorBodySize {
		text = text[:maxErrorBodySize]
	}
	return text
}
