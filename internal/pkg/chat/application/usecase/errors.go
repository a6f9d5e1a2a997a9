package usecase

import (
	"errors"
	"fmt"
	"time"

	chat "chat-relay/internal/pkg/chat/application/domain"
	repository "chat-relay/internal/pkg/chat/persistence/repository/port"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use case
var ErrPersistence = errors.New("chat use case persistence error")

// storeError maps a repository failure: a missing row is NotFound, anything
// else means the store is unavailable.
func storeError(err error) error {
	if errors.Is(err, repository.ErrNoRows) {
		return chat.ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func utcNow() time.Time { return time.Now().UTC() }
