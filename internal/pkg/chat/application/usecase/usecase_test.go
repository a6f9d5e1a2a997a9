package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identityAdapter "chat-relay/internal/infrastructure/identity/adapter"
	identity "chat-relay/internal/infrastructure/identity/port"
	chat "chat-relay/internal/pkg/chat/application/domain"
	repoAdapter "chat-relay/internal/pkg/chat/persistence/repository/adapter"
)

var errStoreDown = errors.New("store down")

// spyRepo wraps the memory repository to count writes and inject failures.
type spyRepo struct {
	*repoAdapter.MemoryChatRepository

	mu        sync.Mutex
	saves     int
	deletes   int
	failReads bool
	failSaves bool
}

func newSpyRepo() *spyRepo {
	return &spyRepo{MemoryChatRepository: repoAdapter.NewMemoryChatRepository()}
}

func (s *spyRepo) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	if s.failReads {
		return nil, errStoreDown
	}
	return s.MemoryChatRepository.GetConversation(ctx, id)
}

func (s *spyRepo) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	if s.failReads {
		return false, errStoreDown
	}
	return s.MemoryChatRepository.IsMember(ctx, conversationID, userID)
}

func (s *spyRepo) SaveMessage(ctx context.Context, m chat.Message) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	if s.failSaves {
		return errStoreDown
	}
	return s.MemoryChatRepository.SaveMessage(ctx, m)
}

func (s *spyRepo) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.MemoryChatRepository.DeleteMessage(ctx, id)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []chat.Message
}

func (p *recordingPublisher) PublishMessageCreated(_ context.Context, m chat.Message) {
	p.mu.Lock()
	p.msgs = append(p.msgs, m)
	p.mu.Unlock()
}

type fixture struct {
	repo      *spyRepo
	authority *MembershipAuthority
	publisher *recordingPublisher
	send      *SendMessageUseCase
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repo: newSpyRepo(), publisher: &recordingPublisher{}, clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	f.authority = NewMembershipAuthority(f.repo)
	dir := identityAdapter.NewStaticDirectory(identity.User{ID: "alice", FirstName: "Alice", LastName: "Liddell"})
	f.send = NewSendMessageUseCase(f.authority, dir, f.publisher, nil)
	f.send.Clock = f.tick
	return f
}

func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fixture) conversation(t *testing.T, creator string, members ...string) *chat.Conversation {
	t.Helper()
	uc := NewCreateConversationUseCase(f.repo)
	uc.Clock = f.tick
	c, err := uc.Execute(context.Background(), CreateConversationInput{CallerID: creator, Title: "chat", MemberIDs: members})
	require.NoError(t, err)
	return c
}

func TestMembershipAuthority(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", "bob")
	ctx := context.Background()

	for user, want := range map[string]bool{"alice": true, "bob": true, "carol": false, "": false} {
		ok, err := f.authority.IsMember(ctx, c.ID, user)
		require.NoError(t, err)
		assert.Equal(t, want, ok, user)
	}
	ok, err := f.authority.IsMember(ctx, "no-such-conversation", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.authority.Authorize(ctx, "no-such-conversation", "alice")
	assert.ErrorIs(t, err, chat.ErrNotFound)
	_, err = f.authority.Authorize(ctx, c.ID, "carol")
	assert.ErrorIs(t, err, chat.ErrAccessDenied)

	f.repo.failReads = true
	_, err = f.authority.IsMember(ctx, c.ID, "alice")
	assert.ErrorIs(t, err, ErrPersistence)
	_, err = f.authority.Authorize(ctx, c.ID, "alice")
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestSendMessagePersistsPublishesAndResolves(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", "bob")

	view, err := f.send.Execute(context.Background(), SendMessageInput{CallerID: "alice", ConversationID: c.ID, Content: " hello "})
	require.NoError(t, err)

	assert.Equal(t, "hello", view.Message.Content)
	assert.Equal(t, "alice", view.Message.SenderID)
	assert.Equal(t, "AL", view.Sender.Initials)
	assert.Equal(t, c.ID, view.Conversation.ID)
	require.NotNil(t, view.Conversation.LastMessageAt)
	assert.Equal(t, view.Message.CreatedAt, *view.Conversation.LastMessageAt)

	stored, err := f.repo.GetConversation(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessageAt)
	assert.Equal(t, view.Message.CreatedAt, *stored.LastMessageAt)

	require.Len(t, f.publisher.msgs, 1)
	assert.Equal(t, view.Message.ID, f.publisher.msgs[0].ID)
}

func TestSendMessageRejectionsWriteNothing(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", "bob")
	ctx := context.Background()

	_, err := f.send.Execute(ctx, SendMessageInput{CallerID: "alice", ConversationID: c.ID, Content: "   "})
	assert.ErrorIs(t, err, chat.ErrValidation)

	f.repo.failReads = true
	_, err = f.send.Execute(ctx, SendMessageInput{CallerID: "alice", ConversationID: c.ID, Content: ""})
	assert.ErrorIs(t, err, chat.ErrValidation, "validation precedes any lookup")
	f.repo.failReads = false

	_, err = f.send.Execute(ctx, SendMessageInput{CallerID: "carol", ConversationID: c.ID, Content: "let me in"})
	assert.ErrorIs(t, err, chat.ErrAccessDenied)

	_, err = f.send.Execute(ctx, SendMessageInput{CallerID: "alice", ConversationID: "missing", Content: "hi"})
	assert.ErrorIs(t, err, chat.ErrNotFound)

	assert.Zero(t, f.repo.saves)
	assert.Empty(t, f.publisher.msgs)

	msgs, err := f.repo.ListMessages(ctx, c.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessageStoreFailureDoesNotPublish(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", "bob")
	f.repo.failSaves = true

	_, err := f.send.Execute(context.Background(), SendMessageInput{CallerID: "alice", ConversationID: c.ID, Content: "hi"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, f.publisher.msgs)
}

func TestSendMessageFallsBackToBareSender(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", "bob")

	view, err := f.send.Execute(context.Background(), SendMessageInput{CallerID: "bob", ConversationID: c.ID, Content: "yo"})
	require.NoError(t, err)
	assert.Equal(t, identity.User{ID: "bob", Initials: "NA"}, view.Sender)
}

func TestListMessagesAscending(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", "bob")
	ctx := context.Background()

	for i, content := range []string{"one", "two", "three"} {
		sender := []string{"alice", "bob"}[i%2]
		_, err := f.send.Execute(ctx, SendMessageInput{CallerID: sender, ConversationID: c.ID, Content: content})
		require.NoError(t, err)
	}

	uc := NewListMessagesUseCase(f.authority)
	msgs, err := uc.Execute(ctx, ListMessagesInput{CallerID: "bob", ConversationID: c.ID})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "three", msgs[2].Content)

	page, err := uc.Execute(ctx, ListMessagesInput{CallerID: "bob", ConversationID: c.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Content)

	_, err = uc.Execute(ctx, ListMessagesInput{CallerID: "carol", ConversationID: c.ID})
	assert.ErrorIs(t, err, chat.ErrAccessDenied)
}

func TestGetAndDeleteMessageFetchThenCheck(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", "bob")
	ctx := context.Background()
	view, err := f.send.Execute(ctx, SendMessageInput{CallerID: "alice", ConversationID: c.ID, Content: "secret"})
	require.NoError(t, err)
	id := view.Message.ID

	get := NewGetMessageUseCase(f.authority)
	del := NewDeleteMessageUseCase(f.authority)

	_, err = get.Execute(ctx, GetMessageInput{CallerID: "carol", MessageID: id})
	assert.ErrorIs(t, err, chat.ErrAccessDenied)
	_, err = get.Execute(ctx, GetMessageInput{CallerID: "bob", MessageID: "missing"})
	assert.ErrorIs(t, err, chat.ErrNotFound)

	_, err = del.Execute(ctx, DeleteMessageInput{CallerID: "carol", MessageID: id})
	assert.ErrorIs(t, err, chat.ErrAccessDenied)
	assert.Zero(t, f.repo.deletes, "no underlying delete for a non-member")

	got, err := get.Execute(ctx, GetMessageInput{CallerID: "bob", MessageID: id})
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Content)

	deleted, err := del.Execute(ctx, DeleteMessageInput{CallerID: "bob", MessageID: id})
	require.NoError(t, err, "any member may delete")
	assert.Equal(t, id, deleted.ID)
	assert.Equal(t, 1, f.repo.deletes)

	_, err = get.Execute(ctx, GetMessageInput{CallerID: "bob", MessageID: id})
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestConversationUseCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.conversation(t, "alice", "bob")
	second := f.conversation(t, "alice", "carol")

	list, err := NewListConversationsUseCase(f.repo).Execute(ctx, ListConversationsInput{CallerID: "alice"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	list, err = NewListConversationsUseCase(f.repo).Execute(ctx, ListConversationsInput{CallerID: "bob"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = NewGetConversationUseCase(f.authority).Execute(ctx, GetConversationInput{CallerID: "carol", ConversationID: first.ID})
	assert.ErrorIs(t, err, chat.ErrAccessDenied)

	update := NewUpdateConversationUseCase(f.authority)
	renamed, err := update.Execute(ctx, UpdateConversationInput{CallerID: "bob", ConversationID: first.ID, Title: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)
	assert.Equal(t, []string{"alice", "bob"}, renamed.MemberIDs)

	_, err = update.Execute(ctx, UpdateConversationInput{CallerID: "bob", ConversationID: first.ID, Title: " "})
	assert.ErrorIs(t, err, chat.ErrValidation)

	del := NewDeleteConversationUseCase(f.authority)
	_, err = del.Execute(ctx, DeleteConversationInput{CallerID: "carol", ConversationID: first.ID})
	assert.ErrorIs(t, err, chat.ErrAccessDenied)
	_, err = del.Execute(ctx, DeleteConversationInput{CallerID: "bob", ConversationID: first.ID})
	require.NoError(t, err)
	_, err = del.Execute(ctx, DeleteConversationInput{CallerID: "bob", ConversationID: first.ID})
	assert.ErrorIs(t, err, chat.ErrNotFound)

	_, err = NewCreateConversationUseCase(f.repo).Execute(ctx, CreateConversationInput{CallerID: "alice", Title: "", MemberIDs: []string{"bob"}})
	assert.ErrorIs(t, err, chat.ErrValidation)
}

func TestJoinConversation(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", "bob")
	join := NewJoinConversationUseCase(f.authority)

	got, err := join.Execute(context.Background(), JoinConversationInput{ConversationID: c.ID, UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = join.Execute(context.Background(), JoinConversationInput{ConversationID: c.ID, UserID: "carol"})
	assert.ErrorIs(t, err, chat.ErrAccessDenied)
}

func TestListParticipantsAndGetUser(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", "bob")
	dir := identityAdapter.NewStaticDirectory(identity.User{ID: "alice", FirstName: "Alice", LastName: "Liddell"})

	users, err := NewListParticipantsUseCase(f.authority, dir).Execute(context.Background(), ListParticipantsInput{CallerID: "bob", ConversationID: c.ID})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "AL", users[0].Initials)
	assert.Equal(t, "bob", users[1].ID)

	u, err := NewGetUserUseCase(dir).Execute(context.Background(), GetUserInput{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.FirstName)

	_, err = NewGetUserUseCase(dir).Execute(context.Background(), GetUserInput{UserID: ""})
	assert.ErrorIs(t, err, chat.ErrNotFound)
}
