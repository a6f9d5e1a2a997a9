package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"chat-relay/internal/infrastructure/identity/port"
)

// providerUser is the identity provider's user resource.
type providerUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (p providerUser) toUser() port.User {
	var email string
	if len(p.EmailAddresses) > 0 {
		email = p.EmailAddresses[0].EmailAddress
	}
	return port.User{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     email,
		AvatarURL: p.ImageURL,
		Initials:  port.Initials(p.FirstName, p.LastName, email),
	}
}

// HTTPDirectory implements port.Directory against the identity provider's
// backend API (GET /v1/users/{id}, GET /v1/users?user_id=...).
type HTTPDirectory struct {
	client *resty.Client
}

func NewHTTPDirectory(baseURL, apiKey string, timeout time.Duration) (*HTTPDirectory, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("directory: base url is empty")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &HTTPDirectory{client: c}, nil
}

var _ port.Directory = (*HTTPDirectory)(nil)

func (d *HTTPDirectory) LookupUser(ctx context.Context, id string) (port.User, error) {
	if id == "" {
		return port.User{}, port.ErrUserNotFound
	}
	var out providerUser
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get("/v1/users/{id}")
	if err != nil {
		return port.User{}, fmt.Errorf("directory: get user: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return port.User{}, port.ErrUserNotFound
	case resp.IsError():
		return port.User{}, fmt.Errorf("directory: get user: status %d", resp.StatusCode())
	}
	return out.toUser(), nil
}

// LookupUsers returns the profiles that exist; unknown ids are omitted.
func (d *HTTPDirectory) LookupUsers(ctx context.Context, ids []string) ([]port.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []port.User{}, nil
	}

	var out []providerUser
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(url.Values{"user_id": valid}).
		SetResult(&out).
		Get("/v1/users")
	if err != nil {
		return nil, fmt.Errorf("directory: list users: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("directory: list users: status %d", resp.StatusCode())
	}

	users := make([]port.User, 0, len(out))
	for _, u := range out {
		users = append(users, u.toUser())
	}
	return users, nil
}

// StaticDirectory answers from an in-memory profile set and synthesizes a bare
// profile for unknown ids. Used when no provider API is configured.
type StaticDirectory struct {
	users map[string]port.User
}

func NewStaticDirectory(users ...port.User) *StaticDirectory {
	m := make(map[string]port.User, len(users))
	for _, u := range users {
		if u.Initials == "" {
			u.Initials = port.Initials(u.FirstName, u.LastName, u.Email)
		}
		m[u.ID] = u
	}
	return &StaticDirectory{users: m}
}

var _ port.Directory = (*StaticDirectory)(nil)

func (s *StaticDirectory) LookupUser(_ context.Context, id string) (port.User, error) {
	if id == "" {
		return port.User{}, port.ErrUserNotFound
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return port.User{ID: id, Initials: port.Initials("", "", "")}, nil
}

func (s *StaticDirectory) LookupUsers(ctx context.Context, ids []string) ([]port.User, error) {
	out := make([]port.User, 0, len(ids))
	for _, id := range ids {
		if u, err := s.LookupUser(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}
