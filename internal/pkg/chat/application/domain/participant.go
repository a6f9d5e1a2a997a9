package chat

import "time"

// Participant is one membership row. Position preserves the member order the
// conversation was created with.
// Primary key: (ConversationID, UserID)
type Participant struct {
	ConversationID string    `db:"conversation_id"`
	UserID         string    `db:"user_id"`
	Position       int       `db:"position"`
	JoinedAt       time.Time `db:"joined_at"`
}
