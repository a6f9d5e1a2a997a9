package usecase

import (
	"context"

	chat "chat-relay/internal/pkg/chat/application/domain"
)

// MaxMessagesPage caps a single ListMessages page.
const MaxMessagesPage = 500

// ListMessagesInput pages through a conversation. Limit <= 0 returns the whole
// history up to MaxMessagesPage.
type ListMessagesInput struct {
	CallerID       string
	ConversationID string
	Limit          int
	Offset         int
}

// ListMessagesUseCase returns a conversation's messages oldest first.
type ListMessagesUseCase struct {
	Authority *MembershipAuthority
}

func NewListMessagesUseCase(authority *MembershipAuthority) *ListMessagesUseCase {
	return &ListMessagesUseCase{Authority: authority}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, in ListMessagesInput) ([]chat.Message, error) {
	conv, err := uc.Authority.Authorize(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return nil, err
	}

	limit := in.Limit
	if limit <= 0 || limit > MaxMessagesPage {
		limit = MaxMessagesPage
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	msgs, err := uc.Authority.Repo.ListMessages(ctx, conv.ID, limit, offset)
	if err != nil {
		return nil, storeError(err)
	}
	return msgs, nil
}
