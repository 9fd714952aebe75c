package domain

import "time"

// 事件类型
const (
	EventConversationCompleted = "conversation.completed"
)

// ConversationCompletedEvent 对话结束事件
type ConversationCompletedEvent struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	EndedAt        time.Time `json:"ended_at"`
}
