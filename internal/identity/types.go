package identity

import "time"

// Session is the signed-in user as seen by the storefront.
type Session struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Account is what the identity provider returns for a credential check.
type Account struct {
	UID         string
	Email       string
	DisplayName string
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Result is returned by sign-in and sign-up.
type Result struct {
	Session     Session   `json:"session"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Event names a session transition.
type Event string

const (
	EventSignedIn  Event = "signed_in"
	EventSignedUp  Event = "signed_up"
	EventSignedOut Event = "signed_out"
)

// Change is delivered to session listeners. Session is nil on sign-out.
type Change struct {
	Event   Event
	UID     string
	Session *Session
}
