package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identity "chat-relay/internal/infrastructure/identity/port"
)

// HandlerFunc is a gin handler that receives the verified caller explicitly.
type HandlerFunc func(c *gin.Context, id Identity)

// Guard authenticates every credential source against one Verifier and owns the
// set of public operations that skip verification.
type Guard struct {
	verifier   identity.Verifier
	cookieName string
	log        *zap.Logger

	mu     sync.RWMutex
	public map[string]struct{}
}

func NewGuard(verifier identity.Verifier, cookieName string, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		verifier:   verifier,
		cookieName: cookieName,
		log:        log,
		public:     make(map[string]struct{}),
	}
}

// Public marks method+route as exempt from authentication. route is the gin
// route pattern (for example "/health" or "/api/v1/users/:userId").
func (g *Guard) Public(method, route string) {
	g.mu.Lock()
	g.public[publicKey(method, route)] = struct{}{}
	g.mu.Unlock()
}

// IsPublic reports whether method+route was marked public.
func (g *Guard) IsPublic(method, route string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.public[publicKey(method, route)]
	return ok
}

// Authenticate extracts the bearer token from src and verifies it. Every failure
// wraps ErrUnauthenticated.
func (g *Guard) Authenticate(ctx context.Context, src CredentialSource) (Identity, error) {
	tok, ok := src.bearer()
	if !ok {
		return Identity{}, fmt.Errorf("%w: missing credential", ErrUnauthenticated)
	}
	claims, err := g.verifier.Verify(ctx, tok)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return Identity{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		OrgID:     claims.OrgID,
		ExpiresAt: claims.ExpiresAt,
		token:     tok,
	}, nil
}

// Handle wraps h for a plain HTTP route: public routes run with an anonymous
// identity, others need a valid request credential or get 401.
func (g *Guard) Handle(h HandlerFunc) gin.HandlerFunc {
	return g.intercept(h, func(c *gin.Context) CredentialSource {
		return RequestCredential{Request: c.Request, CookieName: g.cookieName}
	})
}

// HandleHandshake wraps a websocket upgrade route. Verification happens before
// h runs, so a rejected handshake never upgrades.
func (g *Guard) HandleHandshake(h HandlerFunc) gin.HandlerFunc {
	return g.intercept(h, func(c *gin.Context) CredentialSource {
		return HandshakeCredential{Request: c.Request}
	})
}

func (g *Guard) intercept(h HandlerFunc, source func(*gin.Context) CredentialSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.IsPublic(c.Request.Method, c.FullPath()) {
			h(c, Identity{})
			return
		}
		id, err := g.Authenticate(c.Request.Context(), source(c))
		if err != nil {
			g.log.Debug("request rejected",
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		h(c, id)
	}
}

func publicKey(method, route string) string {
	return strings.ToUpper(method) + " " + route
}
