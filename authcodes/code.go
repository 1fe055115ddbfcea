package authcodes

import "time"

// Code is a single-use authorization grant bound to a client, a redirect URI and a PKCE challenge.
type Code struct {
	Code                string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
}

// Expired reports whether the code is past its deadline at now.
func (c *Code) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
