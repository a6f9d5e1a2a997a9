package repository

import (
	"context"
	"errors"
	"time"

	chat "chat-relay/internal/pkg/chat/application/domain"
)

// ErrNoRows is returned by adapters when the addressed row does not exist.
var ErrNoRows = errors.New("repository: no rows")

// ChatRepository defines persistence operations for conversations and messages.
type ChatRepository interface {
	// CreateConversation stores the conversation and its member rows atomically.
	CreateConversation(ctx context.Context, c chat.Conversation) error
	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)
	// ListConversationsByMember returns userID's conversations, newest first.
	ListConversationsByMember(ctx context.Context, userID string) ([]chat.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id string, title string, updatedAt time.Time) error
	// DeleteConversation removes the conversation with its members and messages.
	DeleteConversation(ctx context.Context, id string) error
	IsMember(ctx context.Context, conversationID string, userID string) (bool, error)

	// SaveMessage inserts m and advances the conversation's last-message marker
	// in one transaction.
	SaveMessage(ctx context.Context, m chat.Message) error
	GetMessage(ctx context.Context, id string) (*chat.Message, error)
	// ListMessages returns messages oldest first (created_at, then id).
	// limit <= 0 means no limit.
	ListMessages(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}
