package usecase

import (
	"context"

	chat "chat-relay/internal/pkg/chat/application/domain"
	repository "chat-relay/internal/pkg/chat/persistence/repository/port"
)

type ListConversationsInput struct {
	CallerID string
}

// ListConversationsUseCase returns the caller's own conversations, newest first.
type ListConversationsUseCase struct {
	Repo repository.ChatRepository
}

func NewListConversationsUseCase(repo repository.ChatRepository) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]chat.Conversation, error) {
	convs, err := uc.Repo.ListConversationsByMember(ctx, in.CallerID)
	if err != nil {
		return nil, storeError(err)
	}
	return convs, nil
}
