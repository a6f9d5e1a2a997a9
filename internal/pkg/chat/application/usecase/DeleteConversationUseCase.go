package usecase

import (
	"context"

	chat "chat-relay/internal/pkg/chat/application/domain"
)

type DeleteConversationInput struct {
	CallerID       string
	ConversationID string
}

// DeleteConversationUseCase removes a conversation and, by cascade, its messages.
// Any member may delete.
type DeleteConversationUseCase struct {
	Authority *MembershipAuthority
}

func NewDeleteConversationUseCase(authority *MembershipAuthority) *DeleteConversationUseCase {
	return &DeleteConversationUseCase{Authority: authority}
}

func (uc *DeleteConversationUseCase) Execute(ctx context.Context, in DeleteConversationInput) (*chat.Conversation, error) {
	conv, err := uc.Authority.Authorize(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return nil, err
	}
	if err := uc.Authority.Repo.DeleteConversation(ctx, conv.ID); err != nil {
		return nil, storeError(err)
	}
	return conv, nil
}
