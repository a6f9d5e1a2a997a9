package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// CreateConversationController handles the conversation creation endpoint
// One controller per endpoint
type CreateConversationController struct {
	UC *usecase.CreateConversationUseCase
}

func NewCreateConversationController(uc *usecase.CreateConversationUseCase) *CreateConversationController {
	return &CreateConversationController{UC: uc}
}

type createConversationRequest struct {
	Title     string   `json:"title"`
	MemberIDs []string `json:"member_ids"`
}

func (h *CreateConversationController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		conv, err := h.UC.Execute(ctx, usecase.CreateConversationInput{
			CallerID:  id.UserID,
			Title:     req.Title,
			MemberIDs: req.MemberIDs,
		})
		if err != nil {
			handleUseCaseError(c, err)
			return
		}

		c.JSON(http.StatusCreated, conversationJSON(*conv))
	}
}
