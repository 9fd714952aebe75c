package service

import (
	"context"
	"time"

	"numerologist/cmd/context-service/internal/biz"
	"numerologist/cmd/context-service/internal/domain"
)

// ContextService 对话上下文服务
type ContextService struct {
	contextUc      *biz.ContextUsecase
	conversationUc *biz.ConversationUsecase
	prompts        *biz.PromptBuilder
	counter        biz.TokenCounter
	model          string
}

// NewContextService 创建上下文服务
func NewContextService(
	contextUc *biz.ContextUsecase,
	conversationUc *biz.ConversationUsecase,
	prompts *biz.PromptBuilder,
	counter biz.TokenCounter,
	model biz.TokenModel,
) *ContextService {
	return &ContextService{
		contextUc:      contextUc,
		conversationUc: conversationUc,
		prompts:        prompts,
		counter:        counter,
		model:          string(model),
	}
}

// GetConversationContext 获取用户对话上下文
func (s *ContextService) GetConversationContext(ctx context.Context, userID string) string {
	return s.contextUc.GetConversationContext(ctx, userID)
}

// InvalidateConversationContext 使用户上下文缓存失效
func (s *ContextService) InvalidateConversationContext(ctx context.Context, userID string) {
	s.contextUc.InvalidateConversationContextCache(ctx, userID)
}

// CountTokens 统计 token，model 为空使用服务默认模型
func (s *ContextService) CountTokens(text, model string) (int, string) {
	if model == "" {
		model = s.model
	}
	return s.counter.CountTokens(text, model), model
}

// StartConversation 开始对话
func (s *ContextService) StartConversation(ctx context.Context, userID, roomID string) (*domain.Conversation, error) {
	return s.conversationUc.StartConversation(ctx, userID, roomID)
}

// UpdateConversationContext 记录对话主题等
func (s *ContextService) UpdateConversationContext(ctx context.Context, id, userID, topic, insights string, numbers []int) (*domain.Conversation, error) {
	return s.conversationUc.UpdateConversationContext(ctx, id, userID, topic, insights, numbers)
}

// EndConversation 结束对话
func (s *ContextService) EndConversation(ctx context.Context, id, userID string) (*domain.Conversation, error) {
	return s.conversationUc.EndConversation(ctx, id, userID)
}

// BuildSessionPrompt 构建语音会话系统提示词
func (s *ContextService) BuildSessionPrompt(ctx context.Context, userID, fullName string, birthDate *time.Time) string {
	return s.prompts.BuildSystemPrompt(ctx, biz.UserProfile{
		UserID:    userID,
		FullName:  fullName,
		BirthDate: birthDate,
	})
}
