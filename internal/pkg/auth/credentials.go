package auth

import (
	"net/http"
	"strings"
)

// CredentialSource is where a bearer token comes from. The set is closed:
// RequestCredential, HandshakeCredential and ConnectionCredential.
type CredentialSource interface {
	bearer() (string, bool)
}

// RequestCredential reads an HTTP request: Authorization: Bearer first, then the session cookie.
type RequestCredential struct {
	Request    *http.Request
	CookieName string
}

func (c RequestCredential) bearer() (string, bool) {
	if c.Request == nil {
		return "", false
	}
	if tok, ok := bearerHeader(c.Request.Header.Get("Authorization")); ok {
		return tok, true
	}
	if c.CookieName != "" {
		if ck, err := c.Request.Cookie(c.CookieName); err == nil && ck.Value != "" {
			return ck.Value, true
		}
	}
	return "", false
}

// HandshakeCredential reads a websocket upgrade request: the "token" query
// parameter, then Authorization: Bearer, then a "bearer, <token>" subprotocol
// (browsers cannot set headers on websocket upgrades).
type HandshakeCredential struct {
	Request *http.Request
}

func (c HandshakeCredential) bearer() (string, bool) {
	if c.Request == nil {
		return "", false
	}
	if tok := strings.TrimSpace(c.Request.URL.Query().Get("token")); tok != "" {
		return tok, true
	}
	if tok, ok := bearerHeader(c.Request.Header.Get("Authorization")); ok {
		return tok, true
	}
	protocols := strings.Split(c.Request.Header.Get("Sec-WebSocket-Protocol"), ",")
	for i := 0; i+1 < len(protocols); i++ {
		if strings.EqualFold(strings.TrimSpace(protocols[i]), "bearer") {
			if tok := strings.TrimSpace(protocols[i+1]); tok != "" {
				return tok, true
			}
		}
	}
	return "", false
}

// ConnectionCredential is the token an authenticated realtime connection was opened with.
type ConnectionCredential struct {
	Token string
}

func (c ConnectionCredential) bearer() (string, bool) {
	return c.Token, c.Token != ""
}

func bearerHeader(h string) (string, bool) {
	const prefix = "bearer "
	h = strings.TrimSpace(h)
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
