package token

import "time"

// Record is an issued access/refresh pair. The refresh token is paired 1:1 with
// the access token it was minted alongside.
type Record struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	IssuedAt     time.Time
	ExpiresAt    time.Time

	// RefreshExpiresAt bounds the refresh token. Zero means it never lapses.
	RefreshExpiresAt time.Time
}

// Expired reports whether the access token is past its deadline at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// RefreshExpired reports whether the refresh token can no longer be redeemed at now.
func (r *Record) RefreshExpired(now time.Time) bool {
	return !r.RefreshExpiresAt.IsZero() && !now.Before(r.RefreshExpiresAt)
}

// ExpiresIn is the remaining lifetime in whole seconds.
func (r *Record) ExpiresIn(now time.Time) int {
	secs := int(r.ExpiresAt.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
