package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// UpdateConversationController renames a conversation.
type UpdateConversationController struct {
	UC *usecase.UpdateConversationUseCase
}

func NewUpdateConversationController(uc *usecase.UpdateConversationUseCase) *UpdateConversationController {
	return &UpdateConversationController{UC: uc}
}

type updateConversationRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *UpdateConversationController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		var req updateConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		conv, err := h.UC.Execute(ctx, usecase.UpdateConversationInput{
			CallerID:       id.UserID,
			ConversationID: c.Param("conversationId"),
			Title:          req.Title,
		})
		if err != nil {
			handleUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, conversationJSON(*conv))
	}
}
