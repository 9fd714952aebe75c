package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"numerologist/cmd/context-service/internal/domain"
)

// ContextInvalidator 上下文缓存失效
type ContextInvalidator interface {
	InvalidateConversationContextCache(ctx context.Context, userID string)
}

// ConversationUsecase 对话生命周期用例
type ConversationUsecase struct {
	repo        domain.ConversationRepository
	invalidator ContextInvalidator
	publisher   domain.EventPublisher
	now         func() time.Time
	log         *log.Helper
}

// NewConversationUsecase 创建对话用例，publisher 可为 nil
func NewConversationUsecase(
	repo domain.ConversationRepository,
	invalidator ContextInvalidator,
	publisher domain.EventPublisher,
	logger log.Logger,
) *ConversationUsecase {
	return &ConversationUsecase{
		repo:        repo,
		invalidator: invalidator,
		publisher:   publisher,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.NewHelper(log.With(logger, "module", "conversation-usecase")),
	}
}

// StartConversation 开始一次对话
func (uc *ConversationUsecase) StartConversation(ctx context.Context, userID, roomID string) (*domain.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidArgument)
	}

	conversation := domain.NewConversation(userID, strings.TrimSpace(roomID))
	if err := uc.repo.CreateConversation(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	uc.log.WithContext(ctx).Infof("conversation started: %s (user %s)", conversation.ID, userID)
	return conversation, nil
}

// GetConversation 获取对话，只允许所有者访问
func (uc *ConversationUsecase) GetConversation(ctx context.Context, id, userID string) (*domain.Conversation, error) {
	conversation, err := uc.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return conversation, nil
}

// UpdateConversationContext 记录对话主题、要点和数字
func (uc *ConversationUsecase) UpdateConversationContext(
	ctx context.Context,
	id, userID, topic, insights string,
	numbers []int,
) (*domain.Conversation, error) {
	for _, n := range numbers {
		if n < 0 {
			return nil, fmt.Errorf("%w: numbers must be non-negative", domain.ErrInvalidArgument)
		}
	}

	conversation, err := uc.GetConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	conversation.RecordContext(strings.TrimSpace(topic), strings.TrimSpace(insights), numbers)
	if err := uc.repo.UpdateConversation(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}

	// 已完成的对话会出现在上下文里
	if conversation.IsCompleted() {
		uc.invalidator.InvalidateConversationContextCache(ctx, userID)
	}
	return conversation, nil
}

// EndConversation 结束对话：写入结束时间和时长，持久化后使上下文缓存失效，再发布事件
func (uc *ConversationUsecase) EndConversation(ctx context.Context, id, userID string) (*domain.Conversation, error) {
	conversation, err := uc.GetConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if err := conversation.End(uc.now()); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateConversation(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to end conversation: %w", err)
	}

	uc.invalidator.InvalidateConversationContextCache(ctx, userID)
	uc.publishCompleted(ctx, conversation)

	uc.log.WithContext(ctx).Infof("conversation ended: %s (duration %ds)", conversation.ID, *conversation.DurationSeconds)
	return conversation, nil
}

func (uc *ConversationUsecase) publishCompleted(ctx context.Context, conversation *domain.Conversation) {
	if uc.publisher == nil {
		return
	}

	event := &domain.ConversationCompletedEvent{
		EventID:        uuid.NewString(),
		EventType:      domain.EventConversationCompleted,
		UserID:         conversation.UserID,
		ConversationID: conversation.ID,
		EndedAt:        *conversation.EndedAt,
	}
	if err := uc.publisher.PublishConversationCompleted(ctx, event); err != nil {
		uc.log.WithContext(ctx).Warnf("failed to publish conversation completed event: %v", err)
	}
}
