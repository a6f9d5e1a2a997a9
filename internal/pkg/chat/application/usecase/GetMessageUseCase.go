package usecase

import (
	"context"
	"strings"

	chat "chat-relay/internal/pkg/chat/application/domain"
)

type GetMessageInput struct {
	CallerID  string
	MessageID string
}

// GetMessageUseCase returns one message to a member of its conversation.
type GetMessageUseCase struct {
	Authority *MembershipAuthority
}

func NewGetMessageUseCase(authority *MembershipAuthority) *GetMessageUseCase {
	return &GetMessageUseCase{Authority: authority}
}

func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) (*chat.Message, error) {
	return authorizedMessage(ctx, uc.Authority, in.MessageID, in.CallerID)
}

// authorizedMessage fetches the message, then checks the caller against its conversation.
func authorizedMessage(ctx context.Context, authority *MembershipAuthority, messageID, callerID string) (*chat.Message, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, chat.ErrNotFound
	}
	msg, err := authority.Repo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, storeError(err)
	}
	if _, err := authority.Authorize(ctx, msg.ConversationID, callerID); err != nil {
		return nil, err
	}
	return msg, nil
}
