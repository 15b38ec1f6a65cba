package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "NESTFEED_API_URL", "NESTFEED_RELAY_URL", "NESTFEED_SESSION_BACKEND",
		"NESTFEED_SESSION_PATH", "NESTFEED_SESSION_RETENTION", "NESTFEED_FEED_PAGE_SIZE",
		"NESTFEED_HTTP_TIMEOUT", "NESTFEED_RELAY_HANDSHAKE_TIMEOUT", "NESTFEED_RELAY_PING_INTERVAL",
		"NESTFEED_ALLOWED_ORIGINS", "NESTFEED_DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:3000/api", cfg.API.BaseURL)
	assert.Equal(t, "ws://localhost:3000/ws", cfg.Relay.URL)
	assert.Equal(t, SessionBackendFile, cfg.Session.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.Retention)
	assert.Equal(t, 5, cfg.Feed.PageSize)
	assert.False(t, cfg.Debug)
	assert.Equal(t, []string{"http://localhost", "http://127.0.0.1"}, cfg.Server.AllowedOrigins)
}

func TestLoadRelayDerivedFromHTTPS(t *testing.T) {
	clearEnv(t)
	t.Setenv("NESTFEED_API_URL", "https://social.example.com/api/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://social.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "wss://social.example.com/ws", cfg.Relay.URL)
}

func TestLoadAcceptsHostPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                       "80 80",
		"NESTFEED_SESSION_BACKEND":   "redis",
		"NESTFEED_SESSION_RETENTION": "soon",
		"NESTFEED_FEED_PAGE_SIZE":    "0",
		"NESTFEED_DEBUG":             "maybe",
		"NESTFEED_API_URL":           "not a url",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMemoryBackendHasNoPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("NESTFEED_SESSION_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Session.Path)
}
