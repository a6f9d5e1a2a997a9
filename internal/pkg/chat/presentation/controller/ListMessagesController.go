package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// ListMessagesController pages through a conversation, oldest first.
type ListMessagesController struct {
	UC *usecase.ListMessagesUseCase
}

func NewListMessagesController(uc *usecase.ListMessagesUseCase) *ListMessagesController {
	return &ListMessagesController{UC: uc}
}

func (h *ListMessagesController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		// Defaults: whole history, capped by the use case
		limit := queryInt(c, "limit", 0)
		offset := queryInt(c, "offset", 0)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		msgs, err := h.UC.Execute(ctx, usecase.ListMessagesInput{
			CallerID:       id.UserID,
			ConversationID: c.Param("conversationId"),
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			handleUseCaseError(c, err)
			return
		}

		out := make([]gin.H, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, messageJSON(m))
		}
		c.JSON(http.StatusOK, gin.H{
			"messages": out,
			"limit":    limit,
			"offset":   offset,
			"count":    len(out),
		})
	}
}
