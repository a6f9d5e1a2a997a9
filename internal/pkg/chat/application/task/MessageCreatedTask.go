package task

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	qport "chat-relay/internal/infrastructure/queue/port"
	chat "chat-relay/internal/pkg/chat/application/domain"
)

// MessageCreatedTaskType is the queue task name for a committed chat message.
const MessageCreatedTaskType = "chat:message_created"

// MessageCreatedPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid coupling them to JSON tags.
type MessageCreatedPayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

var errIncompletePayload = errors.New("message payload is missing id, conversation_id or sender_id")

// NewMessageCreatedTask encodes m. The conversation id is the task key so
// partitioned brokers keep one conversation on one partition.
func NewMessageCreatedTask(m chat.Message) (qport.Task, error) {
	b, err := json.Marshal(MessageCreatedPayload{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	})
	if err != nil {
		return qport.Task{}, err
	}
	return qport.Task{Type: MessageCreatedTaskType, Key: m.ConversationID, Payload: b}, nil
}

func decodeMessageCreated(t qport.Task) (chat.Message, error) {
	var p MessageCreatedPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return chat.Message{}, err
	}
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.ConversationID) == "" || strings.TrimSpace(p.SenderID) == "" {
		return chat.Message{}, errIncompletePayload
	}
	return chat.Message{
		ID:             p.ID,
		ConversationID: p.ConversationID,
		SenderID:       p.SenderID,
		Content:        p.Content,
		CreatedAt:      p.CreatedAt,
	}, nil
}

// messageFrame is the realtime push sent to every socket in the room.
type messageFrame struct {
	Type           string                `json:"type"`
	ConversationID string                `json:"conversation_id"`
	Message        MessageCreatedPayload `json:"message"`
}

// NewMessageFrameType is the "type" of the realtime push frame.
const NewMessageFrameType = "newMessage"

func encodeMessageFrame(m chat.Message) ([]byte, error) {
	return json.Marshal(messageFrame{
		Type:           NewMessageFrameType,
		ConversationID: m.ConversationID,
		Message: MessageCreatedPayload{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
		},
	})
}
