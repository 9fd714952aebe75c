package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation 语音对话记录
type Conversation struct {
	ID               string
	UserID           string
	DailyRoomID      string
	StartedAt        time.Time
	EndedAt          *time.Time // nil 表示进行中
	DurationSeconds  *int
	MainTopic        string
	KeyInsights      string
	NumbersDiscussed []int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewConversation 创建对话
func NewConversation(userID, roomID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:          uuid.NewString(),
		UserID:      userID,
		DailyRoomID: roomID,
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsCompleted 是否已结束
func (c *Conversation) IsCompleted() bool {
	return c.EndedAt != nil
}

// End 结束对话并计算时长
func (c *Conversation) End(at time.Time) error {
	if c.IsCompleted() {
		return ErrConversationAlreadyEnded
	}
	at = at.UTC()
	c.EndedAt = &at
	duration := int(at.Sub(c.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	c.DurationSeconds = &duration
	c.UpdatedAt = at
	return nil
}

// RecordContext 记录本次对话的主题、要点和讨论过的数字
func (c *Conversation) RecordContext(topic, insights string, numbers []int) {
	c.MainTopic = topic
	c.KeyInsights = insights
	c.NumbersDiscussed = append([]int(nil), numbers...)
	c.UpdatedAt = time.Now().UTC()
}
