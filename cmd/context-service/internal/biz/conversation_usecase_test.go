package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"numerologist/cmd/context-service/internal/domain"
)

type conversationFixture struct {
	repo      *memoryConversationRepo
	store     *memoryContextStore
	publisher *recordingPublisher
	contexts  *ContextUsecase
	uc        *ConversationUsecase
}

func newConversationFixture(conversations ...*domain.Conversation) *conversationFixture {
	logger := log.DefaultLogger
	repo := newMemoryConversationRepo(conversations...)
	store := newMemoryContextStore()
	publisher := &recordingPublisher{}
	contexts := NewContextUsecase(
		store,
		NewHistoryRetriever(repo, logger),
		NewContextFormatter(runeCounter{}, "", logger),
		ContextConfig{MaxTokens: 10000},
		logger,
	)
	return &conversationFixture{
		repo:      repo,
		store:     store,
		publisher: publisher,
		contexts:  contexts,
		uc:        NewConversationUsecase(repo, contexts, publisher, logger),
	}
}

func TestStartConversation(t *testing.T) {
	f := newConversationFixture()

	c, err := f.uc.StartConversation(context.Background(), "u1", " room-1 ")

	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "room-1", c.DailyRoomID)
	assert.False(t, c.IsCompleted())

	_, err = f.uc.StartConversation(context.Background(), "", "room-1")
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestEndConversation_InvalidatesAndPublishes(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	c, err := f.uc.StartConversation(ctx, "u1", "room-1")
	require.NoError(t, err)

	f.uc.now = func() time.Time { return c.StartedAt.Add(95 * time.Second) }
	require.NoError(t, f.store.Set(ctx, "u1", "stale", time.Minute))

	ended, err := f.uc.EndConversation(ctx, c.ID, "u1")

	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, 95, *ended.DurationSeconds)

	_, cached := f.store.cached("u1")
	assert.False(t, cached)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, domain.EventConversationCompleted, event.EventType)
	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, c.ID, event.ConversationID)
}

func TestEndConversation_Errors(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	c, err := f.uc.StartConversation(ctx, "u1", "room-1")
	require.NoError(t, err)

	_, err = f.uc.EndConversation(ctx, "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	_, err = f.uc.EndConversation(ctx, c.ID, "u2")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.uc.EndConversation(ctx, c.ID, "u1")
	require.NoError(t, err)

	_, err = f.uc.EndConversation(ctx, c.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrConversationAlreadyEnded)
	assert.Len(t, f.publisher.events, 1)
}

func TestEndConversation_PersistFailureKeepsCache(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	c, err := f.uc.StartConversation(ctx, "u1", "room-1")
	require.NoError(t, err)
	require.NoError(t, f.store.Set(ctx, "u1", "cached", time.Minute))
	f.repo.updateErr = errBackend

	_, err = f.uc.EndConversation(ctx, c.ID, "u1")

	assert.Error(t, err)
	cached, ok := f.store.cached("u1")
	assert.True(t, ok)
	assert.Equal(t, "cached", cached)
	assert.Empty(t, f.publisher.events)
}

func TestEndConversation_PublishFailureIgnored(t *testing.T) {
	f := newConversationFixture()
	f.publisher.err = errBackend
	ctx := context.Background()
	c, err := f.uc.StartConversation(ctx, "u1", "room-1")
	require.NoError(t, err)

	_, err = f.uc.EndConversation(ctx, c.ID, "u1")

	assert.NoError(t, err)
}

func TestEndConversation_NextContextIncludesConversation(t *testing.T) {
	f := newConversationFixture(completedConversation("u1", "Life Path Number", time.Now().UTC().Add(-48*time.Hour)))
	ctx := context.Background()

	before := f.contexts.GetConversationContext(ctx, "u1")
	assert.NotContains(t, before, "Expression Number")

	c, err := f.uc.StartConversation(ctx, "u1", "room-2")
	require.NoError(t, err)
	_, err = f.uc.UpdateConversationContext(ctx, c.ID, "u1", "Expression Number", "Creative path", []int{3})
	require.NoError(t, err)
	_, err = f.uc.EndConversation(ctx, c.ID, "u1")
	require.NoError(t, err)

	after := f.contexts.GetConversationContext(ctx, "u1")
	assert.Contains(t, after, "1. ")
	assert.Contains(t, after, "Expression Number")
	assert.Contains(t, after, "Life Path Number")
	assert.Equal(t, 2, f.repo.ListCalls())
}

func TestUpdateConversationContext(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	c, err := f.uc.StartConversation(ctx, "u1", "room-1")
	require.NoError(t, err)

	updated, err := f.uc.UpdateConversationContext(ctx, c.ID, "u1", "  Soul Urge ", "Wants freedom", []int{5})
	require.NoError(t, err)
	assert.Equal(t, "Soul Urge", updated.MainTopic)
	assert.Equal(t, []int{5}, updated.NumbersDiscussed)

	_, err = f.uc.UpdateConversationContext(ctx, c.ID, "u1", "x", "", []int{-1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.uc.UpdateConversationContext(ctx, c.ID, "u2", "x", "", nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateConversationContext_CompletedInvalidates(t *testing.T) {
	done := completedConversation("u1", "Life Path Number", time.Now().UTC())
	f := newConversationFixture(done)
	ctx := context.Background()
	f.contexts.GetConversationContext(ctx, "u1")

	_, err := f.uc.UpdateConversationContext(ctx, done.ID, "u1", "Birthday Number", "", nil)
	require.NoError(t, err)

	_, cached := f.store.cached("u1")
	assert.False(t, cached)
	assert.Contains(t, f.contexts.GetConversationContext(ctx, "u1"), "Birthday Number")
}
