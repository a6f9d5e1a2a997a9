package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

type GetUserController struct {
	UC *usecase.GetUserUseCase
}

func NewGetUserController(uc *usecase.GetUserUseCase) *GetUserController {
	return &GetUserController{UC: uc}
}

func (h *GetUserController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, _ auth.Identity) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		u, err := h.UC.Execute(ctx, usecase.GetUserInput{UserID: c.Param("userId")})
		if err != nil {
			handleUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, userJSON(*u))
	}
}
