package data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"numerologist/cmd/context-service/internal/conf"
	"numerologist/cmd/context-service/internal/domain"
)

func TestDecodeNumbers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int
	}{
		{"empty", "", []int{}},
		{"json", "[1,11,22]", []int{1, 11, 22}},
		{"json empty", "[]", []int{}},
		{"legacy comma separated", "1, 11", []int{1, 11}},
		{"legacy with garbage", "7, x, 9", []int{7, 9}},
		{"broken json", "[3, 5", []int{3, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeNumbers(tt.raw))
		})
	}
}

func TestEncodeNumbers(t *testing.T) {
	assert.Equal(t, "", encodeNumbers(nil))
	assert.Equal(t, "[1,11]", encodeNumbers([]int{1, 11}))
}

func TestDataObjectMapping(t *testing.T) {
	c := domain.NewConversation("u1", "room-1")
	c.RecordContext("Life Path Number", "Resonates with 11", []int{1, 11})
	require.NoError(t, c.End(c.StartedAt.Add(time.Minute)))

	got := toDomain(toDataObject(c))

	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.UserID, got.UserID)
	assert.Equal(t, c.MainTopic, got.MainTopic)
	assert.Equal(t, c.KeyInsights, got.KeyInsights)
	assert.Equal(t, c.NumbersDiscussed, got.NumbersDiscussed)
	assert.Equal(t, *c.EndedAt, *got.EndedAt)
	assert.Equal(t, 60, *got.DurationSeconds)
}

// 需要本地 PostgreSQL，设置 CONTEXT_TEST_DB_HOST 启用
func TestConversationRepository_Postgres(t *testing.T) {
	host := os.Getenv("CONTEXT_TEST_DB_HOST")
	if host == "" {
		t.Skip("CONTEXT_TEST_DB_HOST not set, skipping PostgreSQL integration test")
	}

	db, cleanup, err := NewDB(&conf.DatabaseConfig{
		Host:        host,
		Port:        5432,
		DBName:      "numerologist_test",
		User:        "postgres",
		Password:    os.Getenv("DB_PASSWORD"),
		SSLMode:     "disable",
		AutoMigrate: true,
	}, log.DefaultLogger)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	defer cleanup()

	repo := NewConversationRepository(db)
	ctx := context.Background()
	userID := "it-" + time.Now().Format("150405.000000")
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	var ids []string
	for i := 0; i < 3; i++ {
		c := domain.NewConversation(userID, "room")
		c.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.CreateConversation(ctx, c))
		if i < 2 {
			c.RecordContext("Topic", "", []int{i})
			require.NoError(t, c.End(c.StartedAt.Add(30*time.Second)))
			require.NoError(t, repo.UpdateConversation(ctx, c))
		}
		ids = append(ids, c.ID)
	}

	t.Run("ListRecentCompleted", func(t *testing.T) {
		got, err := repo.ListRecentCompleted(ctx, userID, 5)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ids[1], got[0].ID)
		assert.Equal(t, ids[0], got[1].ID)
		assert.Equal(t, []int{1}, got[0].NumbersDiscussed)
	})

	t.Run("GetConversation not found", func(t *testing.T) {
		_, err := repo.GetConversation(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("UpdateConversation not found", func(t *testing.T) {
		err := repo.UpdateConversation(ctx, domain.NewConversation(userID, "room"))
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})
}
