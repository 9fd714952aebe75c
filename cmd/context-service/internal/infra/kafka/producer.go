package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-kratos/kratos/v2/log"

	"numerologist/cmd/context-service/internal/domain"
)

// ProducerConfig 生产者配置
type ProducerConfig struct {
	Brokers    []string
	Topic      string
	MaxRetries int
	Timeout    time.Duration
}

// EventProducer Kafka 事件生产者
type EventProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *log.Helper
}

// NewEventProducer 创建事件生产者
func NewEventProducer(config *ProducerConfig, logger log.Logger) (*EventProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = config.MaxRetries
	if config.Timeout > 0 {
		saramaConfig.Producer.Timeout = config.Timeout
	}

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}

	return NewEventProducerWithClient(producer, config.Topic, logger), nil
}

// NewEventProducerWithClient 使用已有的 SyncProducer 创建
func NewEventProducerWithClient(producer sarama.SyncProducer, topic string, logger log.Logger) *EventProducer {
	return &EventProducer{
		producer: producer,
		topic:    topic,
		log:      log.NewHelper(log.With(logger, "module", "kafka/producer")),
	}
}

// PublishConversationCompleted 发布对话结束事件，以 user_id 作为分区键保证同一用户有序
func (p *EventProducer) PublishConversationCompleted(ctx context.Context, event *domain.ConversationCompletedEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.UserID),
		Value:     sarama.ByteEncoder(eventBytes),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	p.log.WithContext(ctx).Debugf("published %s for user %s (partition %d, offset %d)",
		event.EventType, event.UserID, partition, offset)
	return nil
}

// Close 关闭生产者
func (p *EventProducer) Close() error {
	return p.producer.Close()
}
