package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	identity "chat-relay/internal/infrastructure/identity/port"
	chat "chat-relay/internal/pkg/chat/application/domain"
)

func conversationJSON(c chat.Conversation) gin.H {
	return gin.H{
		"id":              c.ID,
		"title":           c.Title,
		"member_ids":      c.MemberIDs,
		"created_at":      c.CreatedAt,
		"updated_at":      c.UpdatedAt,
		"last_message_at": c.LastMessageAt,
	}
}

func messageJSON(m chat.Message) gin.H {
	return gin.H{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID,
		"content":         m.Content,
		"created_at":      m.CreatedAt,
	}
}

func userJSON(u identity.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
		"avatar_url": u.AvatarURL,
		"initials":   u.Initials,
	}
}

// queryInt reads a non-negative integer query parameter, falling back to def
// when it is absent or malformed.
func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
