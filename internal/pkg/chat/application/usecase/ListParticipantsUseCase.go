package usecase

import (
	"context"
	"fmt"

	identity "chat-relay/internal/infrastructure/identity/port"
)

type ListParticipantsInput struct {
	CallerID       string
	ConversationID string
}

// ListParticipantsUseCase resolves a conversation's members to directory
// profiles, in member order. Members the directory does not know get a bare profile.
type ListParticipantsUseCase struct {
	Authority *MembershipAuthority
	Directory identity.Directory
}

func NewListParticipantsUseCase(authority *MembershipAuthority, directory identity.Directory) *ListParticipantsUseCase {
	return &ListParticipantsUseCase{Authority: authority, Directory: directory}
}

func (uc *ListParticipantsUseCase) Execute(ctx context.Context, in ListParticipantsInput) ([]identity.User, error) {
	conv, err := uc.Authority.Authorize(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return nil, err
	}

	found, err := uc.Directory.LookupUsers(ctx, conv.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	byID := make(map[string]identity.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}

	out := make([]identity.User, 0, len(conv.MemberIDs))
	for _, id := range conv.MemberIDs {
		u, ok := byID[id]
		if !ok {
			u = identity.User{ID: id, Initials: identity.Initials("", "", "")}
		}
		out = append(out, u)
	}
	return out, nil
}
