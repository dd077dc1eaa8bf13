package config

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/rooms")

	level := new(slog.LevelVar)
	cfg, err := LoadConfig("", level, discard())
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/rooms", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0", cfg.ServerAddress)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 5, cfg.MaximumPoolSize)
	assert.Equal(t, "assets", cfg.UploadsDir)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, slog.LevelInfo, level.Level())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/rooms")
	t.Setenv("SERVER_ADDRESS", "127.0.0.1")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WEB_CLIENT", "https://chat.example.com")

	level := new(slog.LevelVar)
	cfg, err := LoadConfig("", level, discard())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, "https://chat.example.com", cfg.WebClient)
	assert.Equal(t, slog.LevelDebug, level.Level())
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	level := new(slog.LevelVar)
	_, err := LoadConfig("", level, discard())
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("anything else"))
}
