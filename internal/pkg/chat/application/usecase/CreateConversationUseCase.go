package usecase

import (
	"context"
	"time"

	chat "chat-relay/internal/pkg/chat/application/domain"
	repository "chat-relay/internal/pkg/chat/persistence/repository/port"
)

// CreateConversationInput carries the data to open a new conversation.
// The caller always ends up as a member.
type CreateConversationInput struct {
	CallerID  string
	Title     string
	MemberIDs []string
}

// CreateConversationUseCase opens a conversation with its members.
type CreateConversationUseCase struct {
	Repo  repository.ChatRepository
	Clock func() time.Time
}

func NewCreateConversationUseCase(repo repository.ChatRepository) *CreateConversationUseCase {
	return &CreateConversationUseCase{Repo: repo, Clock: utcNow}
}

func (uc *CreateConversationUseCase) Execute(ctx context.Context, in CreateConversationInput) (*chat.Conversation, error) {
	conv, err := chat.NewConversation(in.CallerID, in.Title, in.MemberIDs, uc.Clock())
	if err != nil {
		return nil, err
	}
	if err := uc.Repo.CreateConversation(ctx, *conv); err != nil {
		return nil, storeError(err)
	}
	return conv, nil
}
