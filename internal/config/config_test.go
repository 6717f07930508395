package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "PUBLIC_URL", "STORE_DRIVER", "DATABASE_URL",
	"POSTGRES_USER", "POSTGRES_PASSWORD", "PG_HOST", "PG_PORT", "PG_DATABASE",
	"MONGO_URI", "MONGO_DB", "REDIS_ADDR", "REDIS_DB", "HISTORIAN_QUEUE_NAME",
	"TURN_TIMEOUT", "REVEAL_DELAY", "TOKEN_EXPIRE_TIME", "PRIVATE_KEY_PATH",
	"PUBLIC_KEY_PATH", "HISTORIAN_BATCH_SIZE", "HISTORIAN_FLUSH_MS",
}

func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "postgres://postgres:@localhost:5432/mickarin", cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "mickarin_actions", cfg.QueueName)
	assert.Equal(t, 90*time.Second, cfg.TurnTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.RevealDelay)
	assert.Zero(t, cfg.TokenExpire)
	assert.Equal(t, 20, cfg.HistorianBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlush)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("PG_HOST", "db")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("TURN_TIMEOUT", "30s")
	t.Setenv("REVEAL_DELAY", "250")
	t.Setenv("TOKEN_EXPIRE_TIME", "24h")
	t.Setenv("PUBLIC_URL", "https://mickarin.example/")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://postgres:secret@db:5432/mickarin", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.TurnTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.RevealDelay)
	assert.Equal(t, 24*time.Hour, cfg.TokenExpire)
	assert.Equal(t, "https://mickarin.example", cfg.PublicURL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"driver":     {"STORE_DRIVER", "sqlite"},
		"level":      {"LOG_LEVEL", "loud"},
		"timeout":    {"TURN_TIMEOUT", "soon"},
		"expire":     {"TOKEN_EXPIRE_TIME", "later"},
		"half keys":  {"PRIVATE_KEY_PATH", "/tmp/key"},
		"batch size": {"HISTORIAN_BATCH_SIZE", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
