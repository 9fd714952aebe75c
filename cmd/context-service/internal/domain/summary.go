package domain

import "time"

// DefaultTopic 未记录主题时使用的占位
const DefaultTopic = "General discussion"

// ConversationSummary 已完成对话的摘要投影，只读、按需计算
type ConversationSummary struct {
	ConversationID   string
	OccurredAt       time.Time
	Topic            string
	Insight          string
	DiscussedNumbers []int
}

// NewConversationSummary 从对话记录构建摘要；未完成的对话返回 nil
func NewConversationSummary(c *Conversation) *ConversationSummary {
	if c == nil || !c.IsCompleted() {
		return nil
	}

	topic := c.MainTopic
	if topic == "" {
		topic = DefaultTopic
	}
	numbers := c.NumbersDiscussed
	if numbers == nil {
		numbers = []int{}
	}

	return &ConversationSummary{
		ConversationID:   c.ID,
		OccurredAt:       c.StartedAt,
		Topic:            topic,
		Insight:          c.KeyInsights,
		DiscussedNumbers: numbers,
	}
}
