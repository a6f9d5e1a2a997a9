package auth

import (
	"errors"
	"time"
)

// ErrUnauthenticated means no valid credential was presented. It is always
// distinct from an access-denied outcome on an existing resource.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Identity is the verified caller, handed explicitly to every protected handler.
type Identity struct {
	UserID    string
	SessionID string
	OrgID     string
	ExpiresAt time.Time

	token string
}

// Anonymous reports whether the identity was produced for a public operation.
func (id Identity) Anonymous() bool { return id.UserID == "" }

// Connection returns the credential a realtime connection keeps for re-verification.
func (id Identity) Connection() ConnectionCredential {
	return ConnectionCredential{Token: id.token}
}
