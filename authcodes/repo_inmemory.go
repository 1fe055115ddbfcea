package authcodes

import (
	"sync"
	"time"

	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu    sync.RWMutex
	codes map[string]Code
}

// NewInMemoryRepo creates a new in-memory authorization code repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		codes: make(map[string]Code),
	}
}

func (r *InMemoryRepo) Upsert(code *Code) error {
	if code == nil || code.Code == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "[authcodes.Upsert] code is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.Code] = *code
	return nil
}

func (r *InMemoryRepo) Get(code string) (*Code, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codes[code]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[authcodes.Get]")
	}
	return &c, nil
}

func (r *InMemoryRepo) Consume(code string) (*Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[code]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[authcodes.Consume]")
	}
	delete(r.codes, code)
	return &c, nil
}

func (r *InMemoryRepo) Delete(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.codes[code]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "[authcodes.Delete]")
	}
	delete(r.codes, code)
	return nil
}

// DeleteExpired drops every code past its deadline and returns how many were removed.
func (r *InMemoryRepo) DeleteExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, c := range r.codes {
		if c.Expired(now) {
			delete(r.codes, k)
			n++
		}
	}
	return n
}

func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}
