package usecase

import (
	"context"

	chat "chat-relay/internal/pkg/chat/application/domain"
)

type GetConversationInput struct {
	CallerID       string
	ConversationID string
}

// GetConversationUseCase returns one conversation to a member.
type GetConversationUseCase struct {
	Authority *MembershipAuthority
}

func NewGetConversationUseCase(authority *MembershipAuthority) *GetConversationUseCase {
	return &GetConversationUseCase{Authority: authority}
}

func (uc *GetConversationUseCase) Execute(ctx context.Context, in GetConversationInput) (*chat.Conversation, error) {
	return uc.Authority.Authorize(ctx, in.ConversationID, in.CallerID)
}
