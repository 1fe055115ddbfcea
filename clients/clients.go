package clients

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AuthMethod is the token endpoint authentication method of a registered client.
type AuthMethod string

const (
	AuthMethodNone       AuthMethod = "none"
	AuthMethodSecretPost AuthMethod = "client_secret_post"
)

// Client is a dynamically registered OAuth client. Records are immutable once stored.
type Client struct {
	ID           string     `json:"client_id"`
	SecretHash   []byte     `json:"-"`
	RedirectURIs []string   `json:"redirect_uris"`
	Name         string     `json:"client_name,omitempty"`
	AuthMethod   AuthMethod `json:"token_endpoint_auth_method"`
	CreatedAt    time.Time  `json:"client_id_issued_at"`
}

// IsPublic returns true if the client authenticates with PKCE alone
func (c *Client) IsPublic() bool {
	return len(c.SecretHash) == 0
}

// SetSecret stores a bcrypt hash of the plaintext secret
func (c *Client) SetSecret(secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.SecretHash = hash
	return nil
}

// CheckSecret reports whether secret matches the stored hash. Public clients never match.
func (c *Client) CheckSecret(secret string) bool {
	if c.IsPublic() {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.SecretHash, []byte(secret)) == nil
}

// HasRedirectURI checks for an exact match against the registered URIs
func (c *Client) HasRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

func (c *Client) clone() *Client {
	cp := *c
	cp.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	cp.SecretHash = append([]byte(nil), c.SecretHash...)
	return &cp
}
