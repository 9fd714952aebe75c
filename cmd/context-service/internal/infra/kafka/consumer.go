package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/segmentio/kafka-go"

	"numerologist/cmd/context-service/internal/domain"
	"numerologist/pkg/resilience"
)

// Invalidator 上下文缓存失效
type Invalidator interface {
	InvalidateConversationContextCache(ctx context.Context, userID string)
}

// messageReader kafka.Reader 的子集
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer 订阅对话事件，对话结束时使该用户的上下文缓存失效（用于其他实例结束的对话）
type Consumer struct {
	reader      messageReader
	invalidator Invalidator
	retry       resilience.RetryPolicy
	log         *log.Helper
}

// NewConsumer 创建消费者
func NewConsumer(config *ConsumerConfig, invalidator Invalidator, logger log.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: config.Brokers,
		GroupID: config.GroupID,
		Topic:   config.Topic,
	})
	return newConsumer(reader, invalidator, logger)
}

func newConsumer(reader messageReader, invalidator Invalidator, logger log.Logger) *Consumer {
	retry := resilience.DefaultRetryPolicy()
	retry.InitialDelay = 200 * time.Millisecond
	retry.MaxDelay = 2 * time.Second

	return &Consumer{
		reader:      reader,
		invalidator: invalidator,
		retry:       retry,
		log:         log.NewHelper(log.With(logger, "module", "kafka/consumer")),
	}
}

// Start 阻塞消费直到 ctx 取消
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("starting kafka consumer")
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Errorf("failed to close kafka reader: %v", err)
		}
	}()

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.Info("stopping kafka consumer")
				return nil
			}
			c.log.Errorf("error fetching message: %v", err)
			if !c.backoff(ctx) {
				c.log.Info("stopping kafka consumer")
				return nil
			}
			continue
		}

		if err := c.HandleMessage(ctx, message.Value); err != nil {
			c.log.Errorf("error processing message at offset %d: %v", message.Offset, err)
			continue
		}

		err = resilience.Retry(ctx, c.retry, func() error {
			return c.reader.CommitMessages(ctx, message)
		})
		if err != nil && ctx.Err() == nil {
			c.log.Errorf("error committing message at offset %d: %v", message.Offset, err)
		}
	}
}

// backoff 拉取失败后等待，ctx 取消时返回 false
func (c *Consumer) backoff(ctx context.Context) bool {
	timer := time.NewTimer(c.retry.Delay(1))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// HandleMessage 处理单条消息；无法解析或不关心的事件直接跳过
func (c *Consumer) HandleMessage(ctx context.Context, value []byte) error {
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		c.log.Warnf("dropping malformed event: %v", err)
		return nil
	}

	switch envelope.EventType {
	case domain.EventConversationCompleted:
		return c.handleConversationCompleted(ctx, value)
	default:
		c.log.Debugf("ignoring event type %q", envelope.EventType)
		return nil
	}
}

func (c *Consumer) handleConversationCompleted(ctx context.Context, value []byte) error {
	var event domain.ConversationCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("decode %s: %w", domain.EventConversationCompleted, err)
	}
	if event.UserID == "" {
		c.log.Warnf("conversation completed event %s has no user_id", event.EventID)
		return nil
	}

	c.invalidator.InvalidateConversationContextCache(ctx, event.UserID)
	return nil
}
