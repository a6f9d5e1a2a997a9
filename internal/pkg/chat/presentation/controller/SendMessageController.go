package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// SendMessageController handles the send-message endpoint only (one controller per endpoint)
type SendMessageController struct {
	UC *usecase.SendMessageUseCase
}

func NewSendMessageController(uc *usecase.SendMessageUseCase) *SendMessageController {
	return &SendMessageController{UC: uc}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	Content string `json:"content"`
}

// Handle persists the message and answers 201 once it is committed; realtime
// delivery to the other members happens asynchronously.
func (h *SendMessageController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		view, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			CallerID:       id.UserID,
			ConversationID: c.Param("conversationId"),
			Content:        req.Content,
		})
		if err != nil {
			handleUseCaseError(c, err)
			return
		}

		out := messageJSON(view.Message)
		out["sender"] = userJSON(view.Sender)
		out["conversation"] = conversationJSON(view.Conversation)
		c.JSON(http.StatusCreated, out)
	}
}
