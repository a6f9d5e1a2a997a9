package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

type DeleteMessageController struct {
	UC *usecase.DeleteMessageUseCase
}

func NewDeleteMessageController(uc *usecase.DeleteMessageUseCase) *DeleteMessageController {
	return &DeleteMessageController{UC: uc}
}

func (h *DeleteMessageController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.DeleteMessageInput{CallerID: id.UserID, MessageID: c.Param("messageId")})
		if err != nil {
			handleUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, messageJSON(*msg))
	}
}
