package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is a titled thread with an ordered, duplicate-free member set.
type Conversation struct {
	ID            string     `db:"id"`
	Title         string     `db:"title"`
	MemberIDs     []string   `db:"-"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	LastMessageAt *time.Time `db:"last_message_at"`
}

// NewConversation validates title and members. The creator becomes a member
// (first, unless already listed) and at least one other non-blank id is required.
func NewConversation(creatorID, title string, memberIDs []string, now time.Time) (*Conversation, error) {
	if strings.TrimSpace(creatorID) == "" {
		return nil, validationError("creator is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title must not be empty")
	}
	hasMember := false
	for _, id := range memberIDs {
		if strings.TrimSpace(id) != "" {
			hasMember = true
			break
		}
	}
	if !hasMember {
		return nil, validationError("at least one member is required")
	}

	now = now.UTC()
	return &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		MemberIDs: normalizeMembers(creatorID, memberIDs),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasMember reports whether userID belongs to the conversation.
func (c *Conversation) HasMember(userID string) bool {
	if c == nil || userID == "" {
		return false
	}
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Rename changes the title; the member set is never touched by an update.
func (c *Conversation) Rename(title string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return validationError("title must not be empty")
	}
	c.Title = title
	c.UpdatedAt = now.UTC()
	return nil
}

// Participants expands the member set into membership rows.
func (c *Conversation) Participants() []Participant {
	out := make([]Participant, 0, len(c.MemberIDs))
	for i, id := range c.MemberIDs {
		out = append(out, Participant{
			ConversationID: c.ID,
			UserID:         id,
			Position:       i,
			JoinedAt:       c.CreatedAt,
		})
	}
	return out
}
