package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.API.Timeout)
	assert.Equal(t, SessionStoreFile, cfg.Session.Store)
	assert.NotEmpty(t, cfg.Session.Dir)
	assert.Equal(t, 300*time.Millisecond, cfg.Lists.SearchDebounce)
	assert.Equal(t, 10, cfg.Chat.HistoryWindow)
	assert.True(t, cfg.Chat.IncludeContext)
	assert.Equal(t, 24*time.Hour, cfg.Mock.TokenTTL)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://lms.example.com/api/")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("SEARCH_DEBOUNCE", "not-a-duration")
	t.Setenv("CHAT_HISTORY_WINDOW", "-3")
	t.Setenv("ALLOWED_ORIGINS", " http://a.example , ,http://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://lms.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, 300*time.Millisecond, cfg.Lists.SearchDebounce)
	assert.Equal(t, 10, cfg.Chat.HistoryWindow)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORS.AllowedOrigins)
}
