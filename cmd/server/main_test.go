package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/chessgame-go/internal/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.ServerConfig{LogLevel: "warn", LogFormat: "json"})
	logger.Info("hidden")
	logger.Warn("shown", slog.String("game_id", "ABC"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"game_id":"ABC"`)

	buf.Reset()
	logger = newLogger(&buf, config.ServerConfig{LogLevel: "debug", LogFormat: "text"})
	logger.Debug("verbose", slog.String("seat", "white"))
	assert.Contains(t, buf.String(), "seat=white")
}
