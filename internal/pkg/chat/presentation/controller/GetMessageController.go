package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// GetMessageController handles fetching one message by id (one controller per endpoint)
type GetMessageController struct {
	UC *usecase.GetMessageUseCase
}

func NewGetMessageController(uc *usecase.GetMessageUseCase) *GetMessageController {
	return &GetMessageController{UC: uc}
}

func (h *GetMessageController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.GetMessageInput{CallerID: id.UserID, MessageID: c.Param("messageId")})
		if err != nil {
			handleUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, messageJSON(*msg))
	}
}
