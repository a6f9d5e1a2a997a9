package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	identity "chat-relay/internal/infrastructure/identity/port"
	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// WhoAmIController echoes the verified caller together with their directory profile.
type WhoAmIController struct {
	UC *usecase.GetUserUseCase
}

func NewWhoAmIController(uc *usecase.GetUserUseCase) *WhoAmIController {
	return &WhoAmIController{UC: uc}
}

func (h *WhoAmIController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		profile := identity.User{ID: id.UserID, Initials: identity.Initials("", "", "")}
		if u, err := h.UC.Execute(ctx, usecase.GetUserInput{UserID: id.UserID}); err == nil {
			profile = *u
		}

		out := gin.H{
			"user_id":    id.UserID,
			"session_id": id.SessionID,
			"org_id":     id.OrgID,
			"user":       userJSON(profile),
		}
		if !id.ExpiresAt.IsZero() {
			out["expires_at"] = id.ExpiresAt
		}
		c.JSON(http.StatusOK, out)
	}
}
