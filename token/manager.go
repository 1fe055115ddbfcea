package token

import (
	"strings"
	"time"

	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/utils"
	pkgerrors "github.com/pkg/errors"
)

const (
	defaultAccessTokenExpiry  = time.Hour
	defaultRefreshTokenExpiry = 7 * 24 * time.Hour
	defaultTokenLength        = utils.OpaqueTokenBytes
)

// Manager mints, rotates and validates opaque bearer tokens.
type Manager struct {
	repo               Repo
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	tokenLength        int
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
	}
}

// WithRefreshTokenExpiry sets how long a refresh token stays redeemable. Zero or
// less keeps refresh tokens until they are rotated or evicted.
func WithRefreshTokenExpiry(refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

// WithTokenLength sets the number of random bytes behind each token. Values under 16 are ignored.
func WithTokenLength(n int) ManagerOption {
	return func(m *Manager) {
		if n >= 16 {
			m.tokenLength = n
		}
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func New(repo Repo, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:               repo,
		accessTokenExpiry:  defaultAccessTokenExpiry,
		refreshTokenExpiry: defaultRefreshTokenExpiry,
		tokenLength:        defaultTokenLength,
		nowFunc:            time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// AccessTokenExpiry is the lifetime given to every new access token.
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// Issue mints and stores a new pair for clientID.
func (m *Manager) Issue(clientID string) (*Record, error) {
	rec, err := m.newRecord(clientID)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Insert(rec); err != nil {
		return nil, pkgerrors.Wrap(err, "[token.Manager.Issue] repo.Insert")
	}
	return rec, nil
}

// Refresh rotates the pair owning refreshToken. The old access and refresh tokens
// stop working as soon as this returns. When clientID is not empty it must own the pair.
func (m *Manager) Refresh(refreshToken, clientID string) (*Record, error) {
	current, err := m.repo.GetByRefresh(refreshToken)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidGrant, "[token.Manager.Refresh] unknown refresh token")
	}
	if clientID != "" && current.ClientID != clientID {
		return nil, errors.Wrapf(errors.ErrInvalidGrant, "[token.Manager.Refresh] refresh token was issued to another client")
	}
	if current.RefreshExpired(m.nowFunc()) {
		_ = m.repo.Delete(current.AccessToken)
		return nil, errors.Wrapf(errors.ErrInvalidGrant, "[token.Manager.Refresh] refresh token expired")
	}

	next, err := m.newRecord(current.ClientID)
	if err != nil {
		return nil, err
	}
	if _, err := m.repo.Rotate(refreshToken, next); err != nil {
		// Lost a race with another refresh of the same token.
		return nil, errors.Wrapf(errors.ErrInvalidGrant, "[token.Manager.Refresh] rotate")
	}
	return next, nil
}

// RefreshOwner returns the client a refresh token was issued to.
func (m *Manager) RefreshOwner(refreshToken string) (string, error) {
	rec, err := m.repo.GetByRefresh(refreshToken)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInvalidGrant, "[token.Manager.RefreshOwner] unknown refresh token")
	}
	return rec.ClientID, nil
}

// Validate returns the live record for accessToken, evicting it when it has expired.
func (m *Manager) Validate(accessToken string) (*Record, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, errors.ErrUnauthorized
	}
	rec, err := m.repo.Get(accessToken)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "[token.Manager.Validate] unknown token")
	}
	if rec.Expired(m.nowFunc()) {
		_ = m.repo.Delete(accessToken)
		return nil, errors.Wrapf(errors.ErrUnauthorized, "[token.Manager.Validate] %w", errors.ErrTokenExpired)
	}
	return rec, nil
}

// Cleanup drops records whose refresh token has lapsed and returns how many were removed.
func (m *Manager) Cleanup() int {
	return m.repo.DeleteExpired(m.nowFunc())
}

func (m *Manager) newRecord(clientID string) (*Record, error) {
	access, err := utils.RandomString(m.tokenLength)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[token.Manager] access token")
	}
	refresh, err := utils.RandomString(m.tokenLength)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[token.Manager] refresh token")
	}
	now := m.nowFunc()
	rec := &Record{
		AccessToken:  access,
		RefreshToken: refresh,
		ClientID:     clientID,
		IssuedAt:     now,
		ExpiresAt:    now.Add(m.accessTokenExpiry),
	}
	if m.refreshTokenExpiry > 0 {
		rec.RefreshExpiresAt = now.Add(m.refreshTokenExpiry)
	}
	return rec, nil
}
