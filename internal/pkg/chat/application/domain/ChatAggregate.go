package chat

import (
	"errors"
	"fmt"
	"strings"
)

// Domain-level errors for chat behaviors
var (
	ErrValidation   = errors.New("chat: validation failed")
	ErrNotFound     = errors.New("chat: not found")
	ErrAccessDenied = errors.New("chat: caller is not a member of the conversation")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Authorize is the single membership rule: an existing conversation grants
// access to its members only. A nil conversation is reported as not found.
func Authorize(c *Conversation, userID string) error {
	if c == nil {
		return ErrNotFound
	}
	if !c.HasMember(userID) {
		return ErrAccessDenied
	}
	return nil
}

// normalizeMembers trims ids, drops blanks and duplicates (first occurrence wins)
// and puts creator first when it is not already present.
func normalizeMembers(creatorID string, memberIDs []string) []string {
	seen := make(map[string]struct{}, len(memberIDs)+1)
	out := make([]string, 0, len(memberIDs)+1)
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	creatorID = strings.TrimSpace(creatorID)
	present := false
	for _, id := range memberIDs {
		if strings.TrimSpace(id) == creatorID {
			present = true
			break
		}
	}
	if !present {
		add(creatorID)
	}
	for _, id := range memberIDs {
		add(id)
	}
	return out
}
