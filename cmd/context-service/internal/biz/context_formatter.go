package biz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"numerologist/cmd/context-service/internal/domain"
	"numerologist/pkg/monitoring"
)

const (
	// ContextHeader 上下文文本首行
	ContextHeader = "Previous conversations with this user:"

	// MaxInsightRunes 每条要点保留的最大字符数
	MaxInsightRunes = 100

	// MaxLineNumbers 每条最多列出的数字个数
	MaxLineNumbers = 3

	fallbackTemplate = "User has %d previous conversations about numerology."
)

// ContextFormatter 把对话摘要渲染成 token 受限的提示词片段
type ContextFormatter struct {
	counter TokenCounter
	model   string
	log     *log.Helper
}

// NewContextFormatter 创建格式化器
func NewContextFormatter(counter TokenCounter, model TokenModel, logger log.Logger) *ContextFormatter {
	if model == "" {
		model = DefaultTokenModel
	}
	return &ContextFormatter{
		counter: counter,
		model:   string(model),
		log:     log.NewHelper(log.With(logger, "module", "context-formatter")),
	}
}

// FormatConversationHistory 渲染摘要（按新到旧排列），结果 token 数不超过 maxTokens。
// 超限时从最旧的一条开始丢弃，只剩一条仍超限则返回一句话概括，概括也超限返回空串。
func (f *ContextFormatter) FormatConversationHistory(summaries []*domain.ConversationSummary, maxTokens int) string {
	summaries = compactSummaries(summaries)
	if len(summaries) == 0 {
		return ""
	}
	if maxTokens < 0 {
		maxTokens = 0
	}

	for n := len(summaries); n >= 1; n-- {
		text := renderSummaries(summaries[:n])
		tokens := f.counter.CountTokens(text, f.model)
		if tokens <= maxTokens {
			if n < len(summaries) {
				monitoring.ContextTruncationsTotal.WithLabelValues("drop_oldest").Inc()
				f.log.Debugf("context trimmed from %d to %d conversations (%d tokens)", len(summaries), n, tokens)
			}
			monitoring.ContextTokens.Observe(float64(tokens))
			return text
		}
	}

	fallback := fmt.Sprintf(fallbackTemplate, len(summaries))
	tokens := f.counter.CountTokens(fallback, f.model)
	if tokens <= maxTokens {
		monitoring.ContextTruncationsTotal.WithLabelValues("fallback_sentence").Inc()
		monitoring.ContextTokens.Observe(float64(tokens))
		return fallback
	}

	monitoring.ContextTruncationsTotal.WithLabelValues("empty").Inc()
	f.log.Warnf("token budget %d too small for any context", maxTokens)
	return ""
}

func compactSummaries(summaries []*domain.ConversationSummary) []*domain.ConversationSummary {
	out := make([]*domain.ConversationSummary, 0, len(summaries))
	for _, s := range summaries {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func renderSummaries(summaries []*domain.ConversationSummary) string {
	var b strings.Builder
	b.WriteString(ContextHeader)
	for i, s := range summaries {
		b.WriteByte('\n')
		b.WriteString(renderSummaryLine(i+1, s))
	}
	return b.String()
}

// renderSummaryLine 形如 "1. Nov 23: Life Path Number. Insight: .... Numbers: 1, 11"
func renderSummaryLine(index int, s *domain.ConversationSummary) string {
	topic := clause(s.Topic)
	if topic == "" {
		topic = domain.DefaultTopic
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s: %s", index, s.OccurredAt.UTC().Format("Jan 2"), topic)

	if insight := clause(truncateRunes(clause(s.Insight), MaxInsightRunes)); insight != "" {
		b.WriteString(". Insight: ")
		b.WriteString(insight)
	}
	if numbers := s.DiscussedNumbers; len(numbers) > 0 {
		if len(numbers) > MaxLineNumbers {
			numbers = numbers[:MaxLineNumbers]
		}
		b.WriteString(". Numbers: ")
		b.WriteString(joinNumbers(numbers))
	}
	return b.String()
}

// clause 折叠空白为单行并去掉结尾句点
func clause(s string) string {
	return strings.TrimRight(strings.Join(strings.Fields(s), " "), ".")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
