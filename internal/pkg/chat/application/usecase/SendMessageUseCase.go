package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	identity "chat-relay/internal/infrastructure/identity/port"
	chat "chat-relay/internal/pkg/chat/application/domain"
)

// MessagePublisher hands a committed message to the broker. It never fails the
// caller: publish errors are the publisher's to log.
type MessagePublisher interface {
	PublishMessageCreated(ctx context.Context, m chat.Message)
}

// MessageView is a message with its sender profile and conversation resolved.
type MessageView struct {
	Message      chat.Message
	Sender       identity.User
	Conversation chat.Conversation
}

// SendMessageInput carries the data needed to send a new message
type SendMessageInput struct {
	CallerID       string
	ConversationID string
	Content        string
}

// SendMessageUseCase validates, authorizes and persists a message, then
// publishes it for realtime delivery.
type SendMessageUseCase struct {
	Authority *MembershipAuthority
	Directory identity.Directory
	Publisher MessagePublisher
	Log       *zap.Logger
	Clock     func() time.Time
}

func NewSendMessageUseCase(authority *MembershipAuthority, directory identity.Directory, publisher MessagePublisher, log *zap.Logger) *SendMessageUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &SendMessageUseCase{
		Authority: authority,
		Directory: directory,
		Publisher: publisher,
		Log:       log,
		Clock:     utcNow,
	}
}

// Execute runs validation before any lookup, so an empty message never touches
// the store. Nothing is written unless the caller is a member.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*MessageView, error) {
	msg, err := chat.NewMessage(in.ConversationID, in.CallerID, in.Content, uc.Clock())
	if err != nil {
		return nil, err
	}

	conv, err := uc.Authority.Authorize(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return nil, err
	}

	if err := uc.Authority.Repo.SaveMessage(ctx, *msg); err != nil {
		return nil, storeError(err)
	}
	at := msg.CreatedAt
	conv.LastMessageAt = &at
	conv.UpdatedAt = at

	if uc.Publisher != nil {
		uc.Publisher.PublishMessageCreated(ctx, *msg)
	}

	return &MessageView{
		Message:      *msg,
		Sender:       uc.resolveSender(ctx, msg.SenderID),
		Conversation: *conv,
	}, nil
}

// resolveSender falls back to a bare profile when the directory cannot answer;
// the message is already committed at this point.
func (uc *SendMessageUseCase) resolveSender(ctx context.Context, senderID string) identity.User {
	fallback := identity.User{ID: senderID, Initials: identity.Initials("", "", "")}
	if uc.Directory == nil {
		return fallback
	}
	u, err := uc.Directory.LookupUser(ctx, senderID)
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			uc.Log.Warn("sender lookup failed", zap.String("user_id", senderID), zap.Error(err))
		}
		return fallback
	}
	return u
}
