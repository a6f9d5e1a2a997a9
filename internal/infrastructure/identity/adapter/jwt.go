package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-relay/internal/infrastructure/identity/port"
)

// JWTConfig selects the verification key. PublicKeyPEM (RS256, what hosted
// identity providers issue) wins over Secret (HS256).
type JWTConfig struct {
	Secret       string
	PublicKeyPEM string
	Issuer       string
	Audience     string
	Leeway       time.Duration
}

// JWTVerifier implements port.Verifier with golang-jwt.
type JWTVerifier struct {
	keyFunc jwt.Keyfunc
	opts    []jwt.ParserOption
}

func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	var (
		method string
		key    any
	)
	switch {
	case cfg.PublicKeyPEM != "":
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("jwt: parse public key: %w", err)
		}
		method, key = jwt.SigningMethodRS256.Alg(), pub
	case cfg.Secret != "":
		method, key = jwt.SigningMethodHS256.Alg(), []byte(cfg.Secret)
	default:
		return nil, errors.New("jwt: a secret or public key is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWTVerifier{
		keyFunc: func(*jwt.Token) (any, error) { return key, nil },
		opts:    opts,
	}, nil
}

var _ port.Verifier = (*JWTVerifier)(nil)

// Verify validates signature, expiry and the optional issuer/audience, then maps
// sub, sid and org_id to Claims.
func (v *JWTVerifier) Verify(_ context.Context, token string) (port.Claims, error) {
	if token == "" {
		return port.Claims{}, fmt.Errorf("%w: empty token", port.ErrInvalidToken)
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, v.keyFunc, v.opts...); err != nil {
		return port.Claims{}, fmt.Errorf("%w: %v", port.ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return port.Claims{}, fmt.Errorf("%w: missing subject", port.ErrInvalidToken)
	}
	out := port.Claims{Subject: sub}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	out.SessionID, _ = claims["sid"].(string)
	out.OrgID, _ = claims["org_id"].(string)
	return out, nil
}
