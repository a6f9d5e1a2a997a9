package usecase

import (
	"context"

	chat "chat-relay/internal/pkg/chat/application/domain"
)

type DeleteMessageInput struct {
	CallerID  string
	MessageID string
}

// DeleteMessageUseCase removes a message. Any member of the conversation may
// delete any message in it, not only its sender.
// TODO: limit deletion to the sender, or a moderator role once roles exist.
type DeleteMessageUseCase struct {
	Authority *MembershipAuthority
}

func NewDeleteMessageUseCase(authority *MembershipAuthority) *DeleteMessageUseCase {
	return &DeleteMessageUseCase{Authority: authority}
}

func (uc *DeleteMessageUseCase) Execute(ctx context.Context, in DeleteMessageInput) (*chat.Message, error) {
	msg, err := authorizedMessage(ctx, uc.Authority, in.MessageID, in.CallerID)
	if err != nil {
		return nil, err
	}
	if err := uc.Authority.Repo.DeleteMessage(ctx, msg.ID); err != nil {
		return nil, storeError(err)
	}
	return msg, nil
}
