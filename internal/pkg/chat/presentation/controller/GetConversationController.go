package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

type GetConversationController struct {
	UC *usecase.GetConversationUseCase
}

func NewGetConversationController(uc *usecase.GetConversationUseCase) *GetConversationController {
	return &GetConversationController{UC: uc}
}

func (h *GetConversationController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		conv, err := h.UC.Execute(ctx, usecase.GetConversationInput{
			CallerID:       id.UserID,
			ConversationID: c.Param("conversationId"),
		})
		if err != nil {
			handleUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, conversationJSON(*conv))
	}
}
