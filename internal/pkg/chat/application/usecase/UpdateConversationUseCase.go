package usecase

import (
	"context"
	"time"

	chat "chat-relay/internal/pkg/chat/application/domain"
)

// UpdateConversationInput renames a conversation. Membership is not editable here.
type UpdateConversationInput struct {
	CallerID       string
	ConversationID string
	Title          string
}

type UpdateConversationUseCase struct {
	Authority *MembershipAuthority
	Clock     func() time.Time
}

func NewUpdateConversationUseCase(authority *MembershipAuthority) *UpdateConversationUseCase {
	return &UpdateConversationUseCase{Authority: authority, Clock: utcNow}
}

func (uc *UpdateConversationUseCase) Execute(ctx context.Context, in UpdateConversationInput) (*chat.Conversation, error) {
	conv, err := uc.Authority.Authorize(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return nil, err
	}
	if err := conv.Rename(in.Title, uc.Clock()); err != nil {
		return nil, err
	}
	if err := uc.Authority.Repo.UpdateConversationTitle(ctx, conv.ID, conv.Title, conv.UpdatedAt); err != nil {
		return nil, storeError(err)
	}
	return conv, nil
}
