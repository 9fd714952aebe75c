package data

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"numerologist/cmd/context-service/internal/domain"
)

// ConversationDO 对话数据对象
type ConversationDO struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)"`
	UserID           string    `gorm:"index:idx_conversation_user_started,priority:1;type:varchar(36);not null"`
	DailyRoomID      string    `gorm:"type:varchar(255)"`
	StartedAt        time.Time `gorm:"index:idx_conversation_user_started,priority:2,sort:desc;not null"`
	EndedAt          *time.Time
	DurationSeconds  *int
	MainTopic        string `gorm:"type:varchar(255)"`
	KeyInsights      string `gorm:"type:text"`
	NumbersDiscussed string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName 指定表名
func (ConversationDO) TableName() string {
	return "conversation"
}

// ConversationRepository 对话仓储实现
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建对话仓储
func NewConversationRepository(db *gorm.DB) domain.ConversationRepository {
	return &ConversationRepository{
		db: db,
	}
}

// CreateConversation 创建对话
func (r *ConversationRepository) CreateConversation(ctx context.Context, conversation *domain.Conversation) error {
	return r.db.WithContext(ctx).Create(toDataObject(conversation)).Error
}

// GetConversation 获取对话
func (r *ConversationRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var do ConversationDO
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&do).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}

	return toDomain(&do), nil
}

// UpdateConversation 更新对话
func (r *ConversationRepository) UpdateConversation(ctx context.Context, conversation *domain.Conversation) error {
	result := r.db.WithContext(ctx).
		Model(&ConversationDO{}).
		Where("id = ?", conversation.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(toDataObject(conversation))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// ListRecentCompleted 最近已完成的对话，按 started_at 倒序
func (r *ConversationRepository) ListRecentCompleted(ctx context.Context, userID string, limit int) ([]*domain.Conversation, error) {
	var dos []ConversationDO
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND ended_at IS NOT NULL", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&dos).Error; err != nil {
		return nil, err
	}

	conversations := make([]*domain.Conversation, len(dos))
	for i := range dos {
		conversations[i] = toDomain(&dos[i])
	}
	return conversations, nil
}

// toDataObject 转换为数据对象
func toDataObject(c *domain.Conversation) *ConversationDO {
	return &ConversationDO{
		ID:               c.ID,
		UserID:           c.UserID,
		DailyRoomID:      c.DailyRoomID,
		StartedAt:        c.StartedAt,
		EndedAt:          c.EndedAt,
		DurationSeconds:  c.DurationSeconds,
		MainTopic:        c.MainTopic,
		KeyInsights:      c.KeyInsights,
		NumbersDiscussed: encodeNumbers(c.NumbersDiscussed),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// toDomain 转换为领域对象
func toDomain(do *ConversationDO) *domain.Conversation {
	return &domain.Conversation{
		ID:               do.ID,
		UserID:           do.UserID,
		DailyRoomID:      do.DailyRoomID,
		StartedAt:        do.StartedAt,
		EndedAt:          do.EndedAt,
		DurationSeconds:  do.DurationSeconds,
		MainTopic:        do.MainTopic,
		KeyInsights:      do.KeyInsights,
		NumbersDiscussed: decodeNumbers(do.NumbersDiscussed),
		CreatedAt:        do.CreatedAt,
		UpdatedAt:        do.UpdatedAt,
	}
}

// encodeNumbers 以 JSON 数组存储
func encodeNumbers(numbers []int) string {
	if len(numbers) == 0 {
		return ""
	}
	b, err := json.Marshal(numbers)
	if err != nil {
		return ""
	}
	return string(b)
}

// decodeNumbers 兼容 JSON 数组和旧的逗号分隔格式，无法解析的项被忽略
func decodeNumbers(raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []int{}
	}

	var numbers []int
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &numbers); err == nil {
			return numbers
		}
		raw = strings.Trim(raw, "[]")
	}

	numbers = []int{}
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	return numbers
}
