package biz

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"

	"numerologist/cmd/context-service/internal/domain"
	"numerologist/pkg/monitoring"
	"numerologist/pkg/observability"
)

const tracerName = "context-service/biz"

// ContextConfig 上下文组装参数
type ContextConfig struct {
	TTL          time.Duration
	HistoryLimit int
	MaxTokens    int
	Timeout      time.Duration
}

// DefaultContextConfig 默认参数
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		TTL:          30 * time.Minute,
		HistoryLimit: DefaultHistoryLimit,
		MaxTokens:    500,
		Timeout:      3 * time.Second,
	}
}

// HistoryReader 历史摘要读取
type HistoryReader interface {
	GetRecentConversations(ctx context.Context, userID string, limit int) ([]*domain.ConversationSummary, error)
}

// HistoryFormatter 摘要渲染
type HistoryFormatter interface {
	FormatConversationHistory(summaries []*domain.ConversationSummary, maxTokens int) string
}

// ContextUsecase 对话上下文用例（cache-aside）
type ContextUsecase struct {
	store     domain.ContextStore
	history   HistoryReader
	formatter HistoryFormatter
	config    ContextConfig
	log       *log.Helper
}

// NewContextUsecase 创建上下文用例
func NewContextUsecase(
	store domain.ContextStore,
	history HistoryReader,
	formatter HistoryFormatter,
	config ContextConfig,
	logger log.Logger,
) *ContextUsecase {
	defaults := DefaultContextConfig()
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = defaults.HistoryLimit
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &ContextUsecase{
		store:     store,
		history:   history,
		formatter: formatter,
		config:    config,
		log:       log.NewHelper(log.With(logger, "module", "context-usecase")),
	}
}

// GetConversationContext 返回用户的对话上下文文本。
// 先读缓存，未命中时读取历史、渲染并回写。任何故障都退化为空串，不向调用方报错。
func (uc *ContextUsecase) GetConversationContext(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}

	ctx, span := observability.StartSpan(ctx, tracerName, "ContextUsecase.GetConversationContext",
		trace.WithAttributes(observability.UserAttr(userID)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, uc.config.Timeout)
	defer cancel()

	cached, err := uc.store.Get(ctx, userID)
	switch {
	case err == nil:
		monitoring.ContextRequestsTotal.WithLabelValues(monitoring.ResultHit).Inc()
		return cached
	case errors.Is(err, domain.ErrContextNotCached):
		monitoring.ContextRequestsTotal.WithLabelValues(monitoring.ResultMiss).Inc()
	default:
		uc.log.WithContext(ctx).Warnf("context cache read failed for user %s: %v", userID, err)
		monitoring.ContextRequestsTotal.WithLabelValues(monitoring.ResultError).Inc()
	}

	start := time.Now()
	summaries, err := uc.history.GetRecentConversations(ctx, userID, uc.config.HistoryLimit)
	if err != nil {
		observability.RecordError(span, err)
		uc.log.WithContext(ctx).Errorf("failed to build context for user %s: %v", userID, err)
		monitoring.ContextRequestsTotal.WithLabelValues(monitoring.ResultDegraded).Inc()
		return ""
	}

	formatted := uc.formatter.FormatConversationHistory(summaries, uc.config.MaxTokens)
	monitoring.ContextBuildDuration.Observe(time.Since(start).Seconds())

	if err := uc.store.Set(ctx, userID, formatted, uc.config.TTL); err != nil {
		uc.log.WithContext(ctx).Warnf("context cache write failed for user %s: %v", userID, err)
	}

	return formatted
}

// InvalidateConversationContextCache 删除用户的缓存上下文，失败只记录日志
func (uc *ContextUsecase) InvalidateConversationContextCache(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	if err := uc.store.Delete(ctx, userID); err != nil {
		uc.log.WithContext(ctx).Warnf("failed to invalidate context cache for user %s: %v", userID, err)
		monitoring.ContextInvalidationsTotal.WithLabelValues("failed").Inc()
		return
	}

	monitoring.ContextInvalidationsTotal.WithLabelValues("ok").Inc()
	uc.log.WithContext(ctx).Debugf("invalidated context cache for user %s", userID)
}

// Config 当前生效参数
func (uc *ContextUsecase) Config() ContextConfig {
	return uc.config
}
