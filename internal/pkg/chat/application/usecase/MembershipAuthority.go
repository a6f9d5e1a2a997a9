package usecase

import (
	"context"
	"errors"
	"strings"

	chat "chat-relay/internal/pkg/chat/application/domain"
	repository "chat-relay/internal/pkg/chat/persistence/repository/port"
)

// MembershipAuthority answers "may this user act on this conversation?" for
// every entry point: HTTP handlers, realtime joins and the delivery consumer.
type MembershipAuthority struct {
	Repo repository.ChatRepository
}

func NewMembershipAuthority(repo repository.ChatRepository) *MembershipAuthority {
	return &MembershipAuthority{Repo: repo}
}

// IsMember reports membership at query time; a missing conversation is false.
func (a *MembershipAuthority) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	if strings.TrimSpace(conversationID) == "" || strings.TrimSpace(userID) == "" {
		return false, nil
	}
	ok, err := a.Repo.IsMember(ctx, conversationID, userID)
	if err != nil {
		return false, storeError(err)
	}
	return ok, nil
}

// Authorize fetches the conversation, then checks membership: ErrNotFound when
// it does not exist, ErrAccessDenied when userID is not a member.
func (a *MembershipAuthority) Authorize(ctx context.Context, conversationID, userID string) (*chat.Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, chat.ErrNotFound
	}
	c, err := a.Repo.GetConversation(ctx, conversationID)
	if err != nil {
		if err = storeError(err); !errors.Is(err, chat.ErrNotFound) {
			return nil, err
		}
		c = nil
	}
	if err := chat.Authorize(c, userID); err != nil {
		return nil, err
	}
	return c, nil
}
