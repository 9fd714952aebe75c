package domain

import (
	"context"
	"time"
)

// ConversationRepository 对话仓储接口
type ConversationRepository interface {
	// CreateConversation 创建对话
	CreateConversation(ctx context.Context, conversation *Conversation) error

	// GetConversation 获取对话
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// UpdateConversation 更新对话
	UpdateConversation(ctx context.Context, conversation *Conversation) error

	// ListRecentCompleted 返回用户最近已完成（ended_at 非空）的对话，按 started_at 倒序
	ListRecentCompleted(ctx context.Context, userID string, limit int) ([]*Conversation, error)
}

// ContextStore 对话上下文缓存（单键读写删，无事务）
type ContextStore interface {
	// Get 未命中返回 ErrContextNotCached
	Get(ctx context.Context, userID string) (string, error)

	Set(ctx context.Context, userID, value string, ttl time.Duration) error

	// Delete 键不存在时不报错
	Delete(ctx context.Context, userID string) error
}

// EventPublisher 领域事件发布
type EventPublisher interface {
	PublishConversationCompleted(ctx context.Context, event *ConversationCompletedEvent) error
}
