package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/cognichat/internal/auth"
)

var configKeys = []string{
	"PORT", "FRONTEND_URL", "DB_PATH", "ALLOWED_ORIGINS", "LOG_LEVEL",
	"DATASET_PATH", "DATASET_SEED", "DATASET_SIZE", "COGNICHAT_USERS", "DEFAULT_MAX_ROWS",
	"RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_BURST",
	"CONVERSATION_LOG_ENABLED", "CONVERSATION_LOG_DIR", "CONVERSATION_LOG_QUEUE_SIZE",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data/cognichat.db", cfg.DBPath)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DatasetConfig{Seed: 42, Size: 1000}, cfg.Dataset)
	assert.Equal(t, auth.DefaultUsers, cfg.Users)
	assert.Equal(t, 10, cfg.DefaultMaxRows)
	assert.Equal(t, RateLimitConfig{PerMinute: 30, Burst: 5}, cfg.RateLimit)
	assert.True(t, cfg.ConversationLog.Enabled)
	assert.Equal(t, "./data/logs/conversations", cfg.ConversationLog.Dir)
	assert.Equal(t, 1000, cfg.ConversationLog.QueueSize)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://chat.example.com")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATASET_SEED", "7")
	t.Setenv("DATASET_SIZE", "250")
	t.Setenv("COGNICHAT_USERS", "alice:wonder")
	t.Setenv("DEFAULT_MAX_ROWS", "25")
	t.Setenv("CONVERSATION_LOG_ENABLED", "off")
	t.Setenv("CONVERSATION_LOG_QUEUE_SIZE", "-4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, uint64(7), cfg.Dataset.Seed)
	assert.Equal(t, 250, cfg.Dataset.Size)
	assert.Equal(t, map[string]string{"alice": "wonder"}, cfg.Users)
	assert.Equal(t, 25, cfg.DefaultSettings().MaxRows)
	assert.False(t, cfg.ConversationLog.Enabled)
	assert.Equal(t, 1000, cfg.ConversationLog.QueueSize)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"DEFAULT_MAX_ROWS":      "4",
		"RATE_LIMIT_PER_MINUTE": "0",
		"COGNICHAT_USERS":       "nopassword",
		"LOG_LEVEL":             "chatty",
		"DATASET_SIZE":          "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=1111\nDATASET_SIZE=12\n"), 0o600))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, 12, cfg.Dataset.Size)
}
