package adapter

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/infrastructure/identity/port"
)

func signHS(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestJWTVerifierHS256(t *testing.T) {
	v, err := NewJWTVerifier(JWTConfig{Secret: "s3cret", Issuer: "https://idp.test"})
	require.NoError(t, err)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	claims, err := v.Verify(ctx, signHS(t, "s3cret", jwt.MapClaims{
		"sub": "user_1", "sid": "sess_1", "org_id": "org_1", "iss": "https://idp.test", "exp": exp.Unix(),
	}))
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.Subject)
	assert.Equal(t, "sess_1", claims.SessionID)
	assert.Equal(t, "org_1", claims.OrgID)
	assert.True(t, exp.Equal(claims.ExpiresAt))

	rejected := map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"wrong secret": signHS(t, "other", jwt.MapClaims{"sub": "u", "iss": "https://idp.test", "exp": exp.Unix()}),
		"expired":      signHS(t, "s3cret", jwt.MapClaims{"sub": "u", "iss": "https://idp.test", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no exp":       signHS(t, "s3cret", jwt.MapClaims{"sub": "u", "iss": "https://idp.test"}),
		"no subject":   signHS(t, "s3cret", jwt.MapClaims{"iss": "https://idp.test", "exp": exp.Unix()}),
		"wrong issuer": signHS(t, "s3cret", jwt.MapClaims{"sub": "u", "iss": "https://evil.test", "exp": exp.Unix()}),
	}
	for name, tok := range rejected {
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, port.ErrInvalidToken, name)
	}
}

func TestJWTVerifierRS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := NewJWTVerifier(JWTConfig{PublicKeyPEM: string(pemKey), Secret: "ignored"})
	require.NoError(t, err)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "user_rs", "exp": time.Now().Add(time.Hour).Unix()}).SignedString(key)
	require.NoError(t, err)
	claims, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user_rs", claims.Subject)

	// An HS256 token signed with the "secret" must not pass an RS256 verifier.
	_, err = v.Verify(context.Background(), signHS(t, "ignored", jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()}))
	assert.ErrorIs(t, err, port.ErrInvalidToken)
}

func TestNewJWTVerifierNeedsKey(t *testing.T) {
	_, err := NewJWTVerifier(JWTConfig{})
	assert.Error(t, err)
	_, err = NewJWTVerifier(JWTConfig{PublicKeyPEM: "nope"})
	assert.Error(t, err)
}

func TestHTTPDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/users/user_1":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "user_1", "first_name": "Ada", "last_name": "Lovelace", "image_url": "https://img/1",
				"email_addresses": []map[string]string{{"email_address": "ada@example.com"}},
			})
		case "/v1/users":
			assert.ElementsMatch(t, []string{"user_2", "user_3"}, r.URL.Query()["user_id"])
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": "user_2", "email_addresses": []map[string]string{{"email_address": "bob@example.com"}}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
		}
	}))
	defer srv.Close()

	d, err := NewHTTPDirectory(srv.URL+"/", "sk_test", time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	u, err := d.LookupUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, port.User{
		ID: "user_1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		AvatarURL: "https://img/1", Initials: "AL",
	}, u)

	_, err = d.LookupUser(ctx, "ghost")
	assert.ErrorIs(t, err, port.ErrUserNotFound)

	users, err := d.LookupUsers(ctx, []string{"user_2", "", "user_3"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bo", users[0].Initials)

	users, err = d.LookupUsers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestStaticDirectory(t *testing.T) {
	d := NewStaticDirectory(port.User{ID: "user_1", FirstName: "Grace", LastName: "Hopper"})
	ctx := context.Background()

	u, err := d.LookupUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "GH", u.Initials)

	u, err = d.LookupUser(ctx, "user_9")
	require.NoError(t, err)
	assert.Equal(t, port.User{ID: "user_9", Initials: "NA"}, u)

	_, err = d.LookupUser(ctx, "")
	assert.ErrorIs(t, err, port.ErrUserNotFound)
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "ÉL", port.Initials("Émile", "Lavoie", "x@y"))
	assert.Equal(t, "ab", port.Initials("Ann", "", "abc@example.com"))
	assert.Equal(t, "NA", port.Initials("", "", ""))
}
