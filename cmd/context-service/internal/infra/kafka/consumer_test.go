package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (r *recordingInvalidator) InvalidateConversationContextCache(_ context.Context, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

// fakeReader 依次返回预置消息，耗尽后阻塞到 ctx 取消
type fakeReader struct {
	mu          sync.Mutex
	messages    chan kafka.Message
	committed   []kafka.Message
	commitFails int
	commitCalls int
	fetchErr    error
	closed      bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	fetchErr := r.fetchErr
	r.fetchErr = nil
	r.mu.Unlock()
	if fetchErr != nil {
		return kafka.Message{}, fetchErr
	}

	select {
	case m := <-r.messages:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitCalls++
	if r.commitFails > 0 {
		r.commitFails--
		return errors.New("coordinator not available")
	}
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestConsumer_HandleMessage(t *testing.T) {
	invalidator := &recordingInvalidator{}
	consumer := newConsumer(&fakeReader{}, invalidator, log.DefaultLogger)
	ctx := context.Background()

	completed, err := json.Marshal(testEvent())
	require.NoError(t, err)

	assert.NoError(t, consumer.HandleMessage(ctx, completed))
	assert.NoError(t, consumer.HandleMessage(ctx, []byte(`{"event_type":"conversation.started","user_id":"u2"}`)))
	assert.NoError(t, consumer.HandleMessage(ctx, []byte(`not json`)))
	assert.NoError(t, consumer.HandleMessage(ctx, []byte(`{"event_type":"conversation.completed"}`)))

	assert.Equal(t, []string{"u1"}, invalidator.users)
}

func TestConsumer_StartCommitsAndStops(t *testing.T) {
	completed, err := json.Marshal(testEvent())
	require.NoError(t, err)

	reader := &fakeReader{messages: make(chan kafka.Message, 2)}
	reader.messages <- kafka.Message{Value: completed, Offset: 1}
	reader.messages <- kafka.Message{Value: []byte(`{"event_type":"other"}`), Offset: 2}

	invalidator := &recordingInvalidator{}
	consumer := newConsumer(reader, invalidator, log.DefaultLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool {
		invalidator.mu.Lock()
		defer invalidator.mu.Unlock()
		return len(invalidator.users) == 1 && len(reader.messages) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	assert.True(t, reader.closed)
	assert.Equal(t, 2, reader.committedCount())
}

func TestConsumer_RetriesCommitAndRecoversFromFetchError(t *testing.T) {
	completed, err := json.Marshal(testEvent())
	require.NoError(t, err)

	reader := &fakeReader{
		messages:    make(chan kafka.Message, 1),
		commitFails: 2,
		fetchErr:    errors.New("broker unavailable"),
	}
	reader.messages <- kafka.Message{Value: completed, Offset: 7}

	invalidator := &recordingInvalidator{}
	consumer := newConsumer(reader, invalidator, log.DefaultLogger)
	consumer.retry.InitialDelay = time.Millisecond
	consumer.retry.MaxDelay = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool {
		return reader.committedCount() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, 3, reader.commitCalls)
}
