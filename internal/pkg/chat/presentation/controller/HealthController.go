package controller

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthController reports liveness and the state of each registered dependency.
type HealthController struct {
	checks map[string]HealthCheck
}

func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{checks: checks}
}

func (h *HealthController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, _ auth.Identity) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		names := make([]string, 0, len(h.checks))
		for name := range h.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		deps := gin.H{}
		for _, name := range names {
			if err := h.checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = "down"
				_ = c.Error(err)
				continue
			}
			deps[name] = "up"
		}

		state := "OK"
		if status != http.StatusOK {
			state = "DEGRADED"
		}
		c.JSON(status, gin.H{"status": state, "dependencies": deps})
	}
}
