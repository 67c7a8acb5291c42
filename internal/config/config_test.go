package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.Postgres.MigrateOnStart)
	assert.Equal(t, 60*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, "store-events", cfg.Kafka.Topic)
	assert.Equal(t, 120*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 720*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 5, cfg.Auth.LoginRateLimit)
	assert.Equal(t, 1025, cfg.SMTP.Port)
	assert.True(t, cfg.RedisEnabled())
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("MIGRATE_ON_START", "false")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.False(t, cfg.Postgres.MigrateOnStart)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET="+testSecret+"\nSMTP_HOST=mail.internal\n"), 0o600))
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("SMTP_HOST", "")
	os.Unsetenv("SMTP_HOST")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "mail.internal", cfg.SMTP.Host)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))

	assert.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("ACCESS_TOKEN_TTL", "forever")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "SMTP_PORT")
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_TTL")
}
