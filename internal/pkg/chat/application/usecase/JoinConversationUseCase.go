package usecase

import (
	"context"

	chat "chat-relay/internal/pkg/chat/application/domain"
)

// JoinConversationInput asks to attach a realtime connection to a conversation room.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
}

// JoinConversationUseCase ensures the user belongs to the conversation before joining the realtime room.
type JoinConversationUseCase struct {
	Authority *MembershipAuthority
}

func NewJoinConversationUseCase(authority *MembershipAuthority) *JoinConversationUseCase {
	return &JoinConversationUseCase{Authority: authority}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) (*chat.Conversation, error) {
	return uc.Authority.Authorize(ctx, in.ConversationID, in.UserID)
}
