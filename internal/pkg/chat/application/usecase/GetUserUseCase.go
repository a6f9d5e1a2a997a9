package usecase

import (
	"context"
	"errors"
	"fmt"

	identity "chat-relay/internal/infrastructure/identity/port"
	chat "chat-relay/internal/pkg/chat/application/domain"
)

type GetUserInput struct {
	UserID string
}

// GetUserUseCase looks a user up in the identity provider's directory.
type GetUserUseCase struct {
	Directory identity.Directory
}

func NewGetUserUseCase(directory identity.Directory) *GetUserUseCase {
	return &GetUserUseCase{Directory: directory}
}

func (uc *GetUserUseCase) Execute(ctx context.Context, in GetUserInput) (*identity.User, error) {
	u, err := uc.Directory.LookupUser(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &u, nil
}
