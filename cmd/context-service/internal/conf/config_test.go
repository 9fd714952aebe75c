package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_MODE", "local")

	c, m, err := Load("")
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 8080, c.Server.HTTPPort)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, 30*time.Minute, c.Context.CacheTTL)
	assert.Equal(t, 5, c.Context.HistoryLimit)
	assert.Equal(t, 500, c.Context.MaxTokens)
	assert.Equal(t, "gpt-4o", c.Context.Model)
	assert.Equal(t, 3*time.Second, c.Context.Timeout)
	assert.Equal(t, "conversation.events", c.Kafka.Topic)
	assert.False(t, c.Auth.Enabled)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_MODE", "local")
	t.Setenv("CONTEXT_MAX_TOKENS", "300")
	t.Setenv("REDIS_PASSWORD", "s3cret")

	path := filepath.Join(t.TempDir(), "context-service.yaml")
	content := "server:\n  http_port: 9000\ncontext:\n  cache_ttl: 10m\n  max_tokens: 800\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, m, err := Load(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 9000, c.Server.HTTPPort)
	assert.Equal(t, 10*time.Minute, c.Context.CacheTTL)
	assert.Equal(t, 300, c.Context.MaxTokens)
	assert.Equal(t, "s3cret", c.Redis.Password)
}

func TestValidate(t *testing.T) {
	valid := Config{Context: ContextConfig{CacheTTL: time.Minute, HistoryLimit: 5, MaxTokens: 500}}
	assert.NoError(t, valid.Validate())

	noSecret := valid
	noSecret.Auth = AuthConfig{Enabled: true}
	assert.Error(t, noSecret.Validate())

	badLimit := valid
	badLimit.Context.HistoryLimit = 0
	assert.Error(t, badLimit.Validate())

	noBrokers := valid
	noBrokers.Kafka = KafkaConfig{Enabled: true}
	assert.Error(t, noBrokers.Validate())
}
