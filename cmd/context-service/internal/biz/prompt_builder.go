package biz

import (
	"context"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultUserName  = "bạn"
	defaultBirthDate = "Chưa cung cấp"
)

// UserProfile 构建提示词所需的用户资料
type UserProfile struct {
	UserID    string
	FullName  string
	BirthDate *time.Time
}

// ContextProvider 对话上下文来源
type ContextProvider interface {
	GetConversationContext(ctx context.Context, userID string) string
}

// PromptBuilder 组装语音会话的系统提示词
type PromptBuilder struct {
	contexts ContextProvider
	log      *log.Helper
}

// NewPromptBuilder 创建提示词构建器
func NewPromptBuilder(contexts ContextProvider, logger log.Logger) *PromptBuilder {
	return &PromptBuilder{
		contexts: contexts,
		log:      log.NewHelper(log.With(logger, "module", "prompt-builder")),
	}
}

// BuildSystemPrompt 生成系统提示词；上下文为空时不输出历史段落
func (b *PromptBuilder) BuildSystemPrompt(ctx context.Context, profile UserProfile) string {
	name := strings.TrimSpace(profile.FullName)
	if name == "" {
		name = defaultUserName
	}
	birthDate := defaultBirthDate
	if profile.BirthDate != nil {
		birthDate = profile.BirthDate.Format("02/01/2006")
	}

	var sb strings.Builder
	sb.WriteString("Bạn là Aria, chuyên gia thần số học thân thiện, trò chuyện bằng giọng nói với người dùng.\n")
	sb.WriteString("Trả lời ngắn gọn, tự nhiên, mỗi lượt không quá ba câu.\n\n")
	sb.WriteString("Thông tin người dùng:\n")
	sb.WriteString("- Tên: " + name + "\n")
	sb.WriteString("- Ngày sinh: " + birthDate + "\n")

	if profile.UserID != "" {
		if history := b.contexts.GetConversationContext(ctx, profile.UserID); history != "" {
			sb.WriteString("\n<conversation_history>\n")
			sb.WriteString(history)
			sb.WriteString("\n</conversation_history>\n")
			sb.WriteString("Hãy tham chiếu tự nhiên các cuộc trò chuyện trước khi phù hợp.\n")
		}
	}

	return sb.String()
}
