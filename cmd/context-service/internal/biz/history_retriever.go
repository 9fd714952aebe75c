package biz

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"

	"numerologist/cmd/context-service/internal/domain"
)

// DefaultHistoryLimit 默认读取的历史对话数
const DefaultHistoryLimit = 5

// HistoryRetriever 读取用户最近已完成的对话并投影为摘要
type HistoryRetriever struct {
	repo domain.ConversationRepository
	log  *log.Helper
}

// NewHistoryRetriever 创建历史读取器
func NewHistoryRetriever(repo domain.ConversationRepository, logger log.Logger) *HistoryRetriever {
	return &HistoryRetriever{
		repo: repo,
		log:  log.NewHelper(log.With(logger, "module", "history-retriever")),
	}
}

// GetRecentConversations 按开始时间倒序返回至多 limit 条摘要，limit<=0 使用默认值
func (r *HistoryRetriever) GetRecentConversations(ctx context.Context, userID string, limit int) ([]*domain.ConversationSummary, error) {
	if userID == "" {
		return []*domain.ConversationSummary{}, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	conversations, err := r.repo.ListRecentCompleted(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, err)
	}

	summaries := make([]*domain.ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		if s := domain.NewConversationSummary(c); s != nil {
			summaries = append(summaries, s)
		}
		if len(summaries) == limit {
			break
		}
	}

	r.log.WithContext(ctx).Debugf("loaded %d conversation summaries for user %s", len(summaries), userID)
	return summaries, nil
}
