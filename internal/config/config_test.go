package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("fallbacks point at localhost", func(t *testing.T) {
		t.Setenv("API_URL", "http://localhost:5000")
		cfg := LoadConfig()

		assert.Equal(t, "http://localhost:5000", cfg.APIURL)
		assert.NotEmpty(t, cfg.WSURL)
		assert.NotEmpty(t, cfg.Port)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("DB_DRIVER", "postgres")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("WS_URL", "ws://example.test/ws")
		t.Setenv("STEP_DELAY", "150ms")

		cfg := LoadConfig()

		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
		assert.Equal(t, "ws://example.test/ws", cfg.WSURL)
		assert.Equal(t, 150*time.Millisecond, cfg.StepDelay)
	})

	t.Run("bad duration falls back", func(t *testing.T) {
		t.Setenv("STEP_DELAY", "soon")
		cfg := LoadConfig()
		assert.Equal(t, 2*time.Second, cfg.StepDelay)
	})
}

func TestConfigLocation(t *testing.T) {
	cfg := &Config{Timezone: "Asia/Shanghai"}
	_, offset := time.Date(2025, 1, 7, 0, 0, 0, 0, cfg.Location()).Zone()
	assert.Equal(t, 8*3600, offset)

	assert.Equal(t, time.Local, (&Config{Timezone: "Mars/Olympus"}).Location())
	assert.Equal(t, time.Local, (&Config{}).Location())
}
