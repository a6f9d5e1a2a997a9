package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-relay/internal/infrastructure/logging"
	"chat-relay/internal/infrastructure/telemetry"
	"chat-relay/internal/pkg/auth"
	httpHandler "chat-relay/internal/pkg/chat/presentation/http"
	"chat-relay/internal/pkg/chat/presentation/controller"
)

// NewEngine builds a gin engine with panic recovery and zap request logging.
func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(log))
	return r
}

// RegisterRoutes mounts the operational endpoints at the root and all version 1
// API routes under /api/v1
func RegisterRoutes(r *gin.Engine, guard *auth.Guard, deps httpHandler.Dependencies, checks map[string]controller.HealthCheck, metrics *telemetry.Metrics) {
	httpHandler.RegisterSystemRoutes(r, guard, checks, metrics.Handler())

	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, guard, deps)
}
