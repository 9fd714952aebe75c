package main

import (
	"github.com/go-kratos/kratos/v2/log"

	"numerologist/cmd/context-service/internal/biz"
	"numerologist/cmd/context-service/internal/conf"
	"numerologist/cmd/context-service/internal/domain"
	"numerologist/cmd/context-service/internal/infra/kafka"
	"numerologist/cmd/context-service/internal/server"
)

// App 应用组件
type App struct {
	HTTPServer *server.HTTPServer
	// Consumer 未启用 Kafka 时为 nil
	Consumer *kafka.Consumer
}

func newApp(httpServer *server.HTTPServer, consumer *kafka.Consumer) *App {
	return &App{
		HTTPServer: httpServer,
		Consumer:   consumer,
	}
}

func newContextConfig(c *conf.ContextConfig) biz.ContextConfig {
	return biz.ContextConfig{
		TTL:          c.CacheTTL,
		HistoryLimit: c.HistoryLimit,
		MaxTokens:    c.MaxTokens,
		Timeout:      c.Timeout,
	}
}

func newTokenModel(c *conf.ContextConfig) biz.TokenModel {
	return biz.TokenModel(c.Model)
}

// newEventPublisher 未启用 Kafka 时返回 nil，对话结束只做本地失效
func newEventPublisher(c *conf.KafkaConfig, logger log.Logger) (domain.EventPublisher, func(), error) {
	if !c.Enabled {
		return nil, func() {}, nil
	}

	producer, err := kafka.NewEventProducer(&kafka.ProducerConfig{
		Brokers:    c.Brokers,
		Topic:      c.Topic,
		MaxRetries: 3,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := producer.Close(); err != nil {
			log.NewHelper(logger).Errorf("failed to close kafka producer: %v", err)
		}
	}
	return producer, cleanup, nil
}

func newConsumer(c *conf.KafkaConfig, invalidator *biz.ContextUsecase, logger log.Logger) *kafka.Consumer {
	if !c.Enabled {
		return nil
	}
	return kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers: c.Brokers,
		Topic:   c.Topic,
		GroupID: c.GroupID,
	}, invalidator, logger)
}
