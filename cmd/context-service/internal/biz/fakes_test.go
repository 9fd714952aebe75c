package biz

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"numerologist/cmd/context-service/internal/domain"
)

// memoryConversationRepo 内存对话仓储
type memoryConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	listCalls     int
	listErr       error
	updateErr     error
}

func newMemoryConversationRepo(conversations ...*domain.Conversation) *memoryConversationRepo {
	repo := &memoryConversationRepo{conversations: make(map[string]*domain.Conversation)}
	for _, c := range conversations {
		repo.conversations[c.ID] = c
	}
	return repo
}

func (r *memoryConversationRepo) CreateConversation(_ context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *c
	r.conversations[c.ID] = &copied
	return nil
}

func (r *memoryConversationRepo) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *memoryConversationRepo) UpdateConversation(_ context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.conversations[c.ID]; !ok {
		return domain.ErrConversationNotFound
	}
	copied := *c
	r.conversations[c.ID] = &copied
	return nil
}

func (r *memoryConversationRepo) ListRecentCompleted(_ context.Context, userID string, limit int) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}

	var out []*domain.Conversation
	for _, c := range r.conversations {
		if c.UserID == userID && c.IsCompleted() {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryConversationRepo) ListCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

// memoryContextStore 内存上下文缓存
type memoryContextStore struct {
	mu        sync.Mutex
	values    map[string]string
	ttls      map[string]time.Duration
	getErr    error
	setErr    error
	deleteErr error
	setCalls  int
}

func newMemoryContextStore() *memoryContextStore {
	return &memoryContextStore{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (s *memoryContextStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[userID]
	if !ok {
		return "", domain.ErrContextNotCached
	}
	return v, nil
}

func (s *memoryContextStore) Set(_ context.Context, userID, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.values[userID] = value
	s.ttls[userID] = ttl
	return nil
}

func (s *memoryContextStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.values, userID)
	delete(s.ttls, userID)
	return nil
}

func (s *memoryContextStore) cached(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[userID]
	return v, ok
}

// blockingContextStore 读写都阻塞到 ctx 结束
type blockingContextStore struct{}

func (blockingContextStore) Get(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingContextStore) Set(ctx context.Context, _, _ string, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingContextStore) Delete(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

// deadlineAwareRepo ctx 结束后查询失败
type deadlineAwareRepo struct {
	*memoryConversationRepo
}

func (r deadlineAwareRepo) ListRecentCompleted(ctx context.Context, userID string, limit int) ([]*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.memoryConversationRepo.ListRecentCompleted(ctx, userID, limit)
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.ConversationCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishConversationCompleted(_ context.Context, event *domain.ConversationCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

// runeCounter 每个字符计 1 token
type runeCounter struct{}

func (runeCounter) CountTokens(text, _ string) int {
	return utf8.RuneCountInString(text)
}

var errBackend = errors.New("backend unavailable")

func completedConversation(userID, topic string, startedAt time.Time, numbers ...int) *domain.Conversation {
	c := domain.NewConversation(userID, "room-"+topic)
	c.StartedAt = startedAt
	c.RecordContext(topic, "Insight about "+topic, numbers)
	_ = c.End(startedAt.Add(10 * time.Minute))
	return c
}
