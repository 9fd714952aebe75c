package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_End(t *testing.T) {
	c := NewConversation("u1", "room-1")
	at := c.StartedAt.Add(2 * time.Minute)

	require.NoError(t, c.End(at))
	assert.True(t, c.IsCompleted())
	assert.Equal(t, 120, *c.DurationSeconds)

	assert.ErrorIs(t, c.End(at.Add(time.Minute)), ErrConversationAlreadyEnded)
	assert.Equal(t, 120, *c.DurationSeconds)
}

func TestConversation_EndBeforeStartClampsDuration(t *testing.T) {
	c := NewConversation("u1", "room-1")

	require.NoError(t, c.End(c.StartedAt.Add(-time.Second)))
	assert.Equal(t, 0, *c.DurationSeconds)
}

func TestNewConversationSummary(t *testing.T) {
	c := NewConversation("u1", "room-1")
	assert.Nil(t, NewConversationSummary(c))
	assert.Nil(t, NewConversationSummary(nil))

	require.NoError(t, c.End(time.Now()))
	summary := NewConversationSummary(c)
	require.NotNil(t, summary)
	assert.Equal(t, DefaultTopic, summary.Topic)
	assert.Equal(t, c.StartedAt, summary.OccurredAt)
	assert.Equal(t, []int{}, summary.DiscussedNumbers)

	c.RecordContext("Life Path Number", "Resonates with 11", []int{1, 11})
	summary = NewConversationSummary(c)
	assert.Equal(t, "Life Path Number", summary.Topic)
	assert.Equal(t, "Resonates with 11", summary.Insight)
	assert.Equal(t, []int{1, 11}, summary.DiscussedNumbers)
}
