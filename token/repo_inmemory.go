package token

import (
	"sync"
	"time"

	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Every live refresh entry points at exactly one live record.
type InMemoryRepo struct {
	mu        sync.RWMutex
	records   map[string]Record // access token -> record
	byRefresh map[string]string // refresh token -> access token
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		records:   make(map[string]Record),
		byRefresh: make(map[string]string),
	}
}

func (r *InMemoryRepo) Insert(record *Record) error {
	if record == nil || record.AccessToken == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "[token.Insert] access token is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(record)
	return nil
}

func (r *InMemoryRepo) Get(accessToken string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[accessToken]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[token.Get]")
	}
	return &rec, nil
}

func (r *InMemoryRepo) GetByRefresh(refreshToken string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	access, ok := r.byRefresh[refreshToken]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[token.GetByRefresh] refresh token")
	}
	rec, ok := r.records[access]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[token.GetByRefresh] record")
	}
	return &rec, nil
}

func (r *InMemoryRepo) Delete(accessToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.deleteLocked(accessToken) {
		return errors.Wrapf(errors.ErrNotFound, "[token.Delete]")
	}
	return nil
}

func (r *InMemoryRepo) Rotate(oldRefresh string, next *Record) (*Record, error) {
	if next == nil || next.AccessToken == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[token.Rotate] access token is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	access, ok := r.byRefresh[oldRefresh]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[token.Rotate] refresh token")
	}
	old, ok := r.records[access]
	if !ok {
		// Dangling index entry; drop it so it cannot be retried.
		delete(r.byRefresh, oldRefresh)
		return nil, errors.Wrapf(errors.ErrNotFound, "[token.Rotate] record")
	}

	r.deleteLocked(access)
	r.insertLocked(next)
	return &old, nil
}

// DeleteExpired drops every record whose refresh token has lapsed. Records
// whose access token alone has expired stay refreshable.
func (r *InMemoryRepo) DeleteExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for access, rec := range r.records {
		if rec.Expired(now) && rec.RefreshExpired(now) {
			r.deleteLocked(access)
			n++
		}
	}
	return n
}

func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *InMemoryRepo) insertLocked(record *Record) {
	r.records[record.AccessToken] = *record
	if record.RefreshToken != "" {
		r.byRefresh[record.RefreshToken] = record.AccessToken
	}
}

func (r *InMemoryRepo) deleteLocked(accessToken string) bool {
	rec, ok := r.records[accessToken]
	if !ok {
		return false
	}
	delete(r.records, accessToken)
	if rec.RefreshToken != "" {
		delete(r.byRefresh, rec.RefreshToken)
	}
	return true
}
