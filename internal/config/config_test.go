package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("USER_SECRET", "secret")
	t.Setenv("AUTH_REDIS_URL", "localhost:6379")
	t.Setenv("CHAT_REDIS_URL", "localhost:6380")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, ":81", cfg.InboxAddr)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.True(t, cfg.LogCompress)
}

func TestLoadPrefixedOverridesPlain(t *testing.T) {
	setRequired(t)
	t.Setenv("SGI_AWS_REGION", "sa-east-1")
	t.Setenv("SGI_ALLOWED_ORIGINS", "https://sgi.example.pe, ,https://admin.example.pe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sa-east-1", cfg.AWSRegion)
	assert.Equal(t, []string{"https://sgi.example.pe", "https://admin.example.pe"}, cfg.AllowedOrigins)
}

func TestLoadRejectsEmptyWorkerPool(t *testing.T) {
	setRequired(t)
	t.Setenv("SGI_WORKER_COUNT", "0")

	_, err := Load()
	assert.Error(t, err)
}
