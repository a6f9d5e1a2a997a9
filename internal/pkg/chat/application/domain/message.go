package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is an immutable log entry in a conversation
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
}

// NewMessage assigns a server id and timestamp. Content is trimmed and must
// not be empty.
func NewMessage(conversationID, senderID, content string, now time.Time) (*Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, validationError("conversation id is required")
	}
	if strings.TrimSpace(senderID) == "" {
		return nil, validationError("sender is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationError("content must not be empty")
	}
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now.UTC(),
	}, nil
}
