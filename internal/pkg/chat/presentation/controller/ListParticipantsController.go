package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// ListParticipantsController returns member profiles of a conversation.
type ListParticipantsController struct {
	UC *usecase.ListParticipantsUseCase
}

func NewListParticipantsController(uc *usecase.ListParticipantsUseCase) *ListParticipantsController {
	return &ListParticipantsController{UC: uc}
}

func (h *ListParticipantsController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		users, err := h.UC.Execute(ctx, usecase.ListParticipantsInput{
			CallerID:       id.UserID,
			ConversationID: c.Param("conversationId"),
		})
		if err != nil {
			handleUseCaseError(c, err)
			return
		}

		out := make([]gin.H, 0, len(users))
		for _, u := range users {
			out = append(out, userJSON(u))
		}
		c.JSON(http.StatusOK, gin.H{"members": out, "count": len(out)})
	}
}
