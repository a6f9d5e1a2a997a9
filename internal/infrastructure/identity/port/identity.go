package port

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrUserNotFound is returned by a Directory for unknown user ids.
	ErrUserNotFound = errors.New("identity: user not found")
)

// Claims is what a verified token asserts about its bearer.
type Claims struct {
	Subject   string
	SessionID string
	OrgID     string
	ExpiresAt time.Time
}

// Verifier checks a bearer token issued by the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// User is a directory profile.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Initials  string `json:"initials"`
}

// Directory resolves user ids to profiles.
type Directory interface {
	LookupUser(ctx context.Context, id string) (User, error)
	LookupUsers(ctx context.Context, ids []string) ([]User, error)
}

// Initials derives display initials: first letters of first and last name,
// else the first two characters of the email, else "NA".
func Initials(firstName, lastName, email string) string {
	if first, last := []rune(firstName), []rune(lastName); len(first) > 0 && len(last) > 0 {
		return string(first[0]) + string(last[0])
	}
	if e := []rune(email); len(e) >= 2 {
		return string(e[:2])
	} else if len(e) == 1 {
		return string(e)
	}
	return "NA"
}
