package token

import "time"

// Repo stores token records keyed by access token with a refresh token index.
type Repo interface {
	Insert(record *Record) error
	Get(accessToken string) (*Record, error)
	GetByRefresh(refreshToken string) (*Record, error)
	// Delete removes the record and its refresh index entry.
	Delete(accessToken string) error
	// Rotate replaces the record owning oldRefresh with next in one step.
	// Concurrent rotations of the same refresh token have exactly one winner.
	Rotate(oldRefresh string, next *Record) (*Record, error)
	// DeleteExpired removes records whose refresh lifetime has lapsed.
	DeleteExpired(now time.Time) int
}
