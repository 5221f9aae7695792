package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ESP_ENCODING", "")

	cfg := Load()
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "windows-1252", cfg.Encoding)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ESP_ENCODING", "windows-1251")

	cfg := Load()
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "windows-1251", cfg.Encoding)
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	cfg := Load()
	assert.Equal(t, 8, cfg.WorkerCount)
}
