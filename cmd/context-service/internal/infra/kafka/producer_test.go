package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"numerologist/cmd/context-service/internal/domain"
)

func testEvent() *domain.ConversationCompletedEvent {
	return &domain.ConversationCompletedEvent{
		EventID:        "evt-1",
		EventType:      domain.EventConversationCompleted,
		UserID:         "u1",
		ConversationID: "c1",
		EndedAt:        time.Date(2024, 11, 23, 10, 0, 0, 0, time.UTC),
	}
}

func TestEventProducer_PublishConversationCompleted(t *testing.T) {
	mock := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event domain.ConversationCompletedEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.UserID != "u1" || event.EventType != domain.EventConversationCompleted {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	producer := NewEventProducerWithClient(mock, "conversation.events", log.DefaultLogger)

	require.NoError(t, producer.PublishConversationCompleted(context.Background(), testEvent()))
	require.NoError(t, producer.Close())
}

func TestEventProducer_SendFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewEventProducerWithClient(mock, "conversation.events", log.DefaultLogger)

	err := producer.PublishConversationCompleted(context.Background(), testEvent())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}
