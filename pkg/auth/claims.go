package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what a storefront access token asserts about its holder.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	Username    string
	// CreatedAt is the account creation time, not the token issue time.
	CreatedAt time.Time
}

// Claims is the wire form of an access token. The jti doubles as the
// session key checked on every request.
type Claims struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Username    string `json:"username,omitempty"`
	Joined      int64  `json:"joined,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	id := Identity{UID: c.UID, Email: c.Email, DisplayName: c.DisplayName, Username: c.Username}
	if id.Username == "" {
		id.Username = c.DisplayName
	}
	switch {
	case c.Joined > 0:
		id.CreatedAt = time.Unix(c.Joined, 0).UTC()
	case c.IssuedAt != nil:
		id.CreatedAt = c.IssuedAt.Time.UTC()
	}
	return id
}
