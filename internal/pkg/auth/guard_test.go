package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identityAdapter "chat-relay/internal/infrastructure/identity/adapter"
)

const testSecret = "guard-secret"

func newGuard(t *testing.T) *Guard {
	t.Helper()
	v, err := identityAdapter.NewJWTVerifier(identityAdapter.JWTConfig{Secret: testSecret})
	require.NoError(t, err)
	return NewGuard(v, "__session", nil)
}

func token(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub, "sid": "sess_" + sub, "exp": time.Now().Add(ttl).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestAuthenticateEachCredentialSource(t *testing.T) {
	g := newGuard(t)
	ctx := context.Background()
	tok := token(t, "user_1", time.Hour)

	header := httptest.NewRequest(http.MethodGet, "/x", nil)
	header.Header.Set("Authorization", "Bearer "+tok)

	cookie := httptest.NewRequest(http.MethodGet, "/x", nil)
	cookie.AddCookie(&http.Cookie{Name: "__session", Value: tok})

	query := httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil)

	subprotocol := httptest.NewRequest(http.MethodGet, "/ws", nil)
	subprotocol.Header.Set("Sec-WebSocket-Protocol", "bearer, "+tok)

	sources := map[string]CredentialSource{
		"request header":        RequestCredential{Request: header},
		"request cookie":        RequestCredential{Request: cookie, CookieName: "__session"},
		"handshake query":       HandshakeCredential{Request: query},
		"handshake header":      HandshakeCredential{Request: header},
		"handshake subprotocol": HandshakeCredential{Request: subprotocol},
		"connection":            ConnectionCredential{Token: tok},
	}
	for name, src := range sources {
		id, err := g.Authenticate(ctx, src)
		require.NoError(t, err, name)
		assert.Equal(t, "user_1", id.UserID, name)
		assert.Equal(t, "sess_user_1", id.SessionID, name)
		assert.Equal(t, ConnectionCredential{Token: tok}, id.Connection(), name)
	}
}

func TestAuthenticateFailuresAreUnauthenticated(t *testing.T) {
	g := newGuard(t)
	ctx := context.Background()

	noHeader := httptest.NewRequest(http.MethodGet, "/x", nil)
	basic := httptest.NewRequest(http.MethodGet, "/x", nil)
	basic.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	cookieOnly := httptest.NewRequest(http.MethodGet, "/x", nil)
	cookieOnly.AddCookie(&http.Cookie{Name: "__session", Value: token(t, "u", time.Hour)})

	sources := map[string]CredentialSource{
		"missing":                 RequestCredential{Request: noHeader},
		"basic auth":              RequestCredential{Request: basic},
		"cookie without name set": RequestCredential{Request: cookieOnly},
		"expired connection":      ConnectionCredential{Token: token(t, "u", -time.Minute)},
		"empty connection":        ConnectionCredential{},
		"handshake without token": HandshakeCredential{Request: noHeader},
	}
	for name, src := range sources {
		_, err := g.Authenticate(ctx, src)
		assert.ErrorIs(t, err, ErrUnauthenticated, name)
	}
}

func TestHandleChecksPublicMarkerBeforeVerification(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := newGuard(t)
	g.Public("get", "/health")

	var seen []Identity
	record := func(c *gin.Context, id Identity) {
		seen = append(seen, id)
		c.Status(http.StatusNoContent)
	}
	r := gin.New()
	r.GET("/health", g.Handle(record))
	r.GET("/whoami", g.Handle(record))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "user_7", time.Hour))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Anonymous())
	assert.Equal(t, "user_7", seen[1].UserID)
	assert.True(t, g.IsPublic("GET", "/health"))
	assert.False(t, g.IsPublic("POST", "/health"))
}

func TestHandleHandshakeRejectsBeforeHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := newGuard(t)
	called := false
	r := gin.New()
	r.GET("/ws", g.HandleHandshake(func(c *gin.Context, id Identity) { called = true }))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token=bogus", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}
