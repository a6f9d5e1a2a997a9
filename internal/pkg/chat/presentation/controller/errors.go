package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/pkg/auth"
	chat "chat-relay/internal/pkg/chat/application/domain"
	"chat-relay/internal/pkg/chat/application/usecase"
)

const requestTimeout = 3 * time.Second

// classify maps a use case error to its HTTP status, realtime error code and
// client-facing message. Infrastructure detail never reaches the client.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, chat.ErrAccessDenied):
		return http.StatusForbidden, "forbidden", "caller is not a member of the conversation"
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, usecase.ErrPersistence):
		return http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}

func handleUseCaseError(c *gin.Context, err error) {
	status, _, message := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": message})
}
