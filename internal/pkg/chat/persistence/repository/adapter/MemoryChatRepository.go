package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	chat "chat-relay/internal/pkg/chat/application/domain"
	repository "chat-relay/internal/pkg/chat/persistence/repository/port"
)

// MemoryChatRepository keeps conversations and messages in process. It backs the
// STORE_DRIVER=memory setup and the use case tests.
type MemoryChatRepository struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	messages      map[string]chat.Message
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string]chat.Message),
	}
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

func (r *MemoryChatRepository) CreateConversation(ctx context.Context, c chat.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[c.ID] = cloneConversation(c)
	return nil
}

func (r *MemoryChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	out := cloneConversation(c)
	return &out, nil
}

func (r *MemoryChatRepository) ListConversationsByMember(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []chat.Conversation{}
	for _, c := range r.conversations {
		if c.HasMember(userID) {
			out = append(out, cloneConversation(c))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryChatRepository) UpdateConversationTitle(ctx context.Context, id string, title string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return repository.ErrNoRows
	}
	c.Title = title
	c.UpdatedAt = updatedAt
	r.conversations[id] = c
	return nil
}

func (r *MemoryChatRepository) DeleteConversation(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[id]; !ok {
		return repository.ErrNoRows
	}
	delete(r.conversations, id)
	for mid, m := range r.messages {
		if m.ConversationID == id {
			delete(r.messages, mid)
		}
	}
	return nil
}

func (r *MemoryChatRepository) IsMember(ctx context.Context, conversationID string, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[conversationID]
	return ok && c.HasMember(userID), nil
}

func (r *MemoryChatRepository) SaveMessage(ctx context.Context, m chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[m.ConversationID]
	if !ok {
		return repository.ErrNoRows
	}
	r.messages[m.ID] = m

	at := m.CreatedAt
	if c.LastMessageAt == nil || at.After(*c.LastMessageAt) {
		c.LastMessageAt = &at
	}
	c.UpdatedAt = at
	r.conversations[c.ID] = c
	return nil
}

func (r *MemoryChatRepository) GetMessage(ctx context.Context, id string) (*chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	return &m, nil
}

func (r *MemoryChatRepository) ListMessages(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []chat.Message{}
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []chat.Message{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryChatRepository) DeleteMessage(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return repository.ErrNoRows
	}
	delete(r.messages, id)
	return nil
}

func cloneConversation(c chat.Conversation) chat.Conversation {
	c.MemberIDs = append([]string(nil), c.MemberIDs...)
	if c.LastMessageAt != nil {
		at := *c.LastMessageAt
		c.LastMessageAt = &at
	}
	return c
}
