package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdsxdev/misinfo-bot/internal/llm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./data/messages.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.MaxFailuresBeforeSwitch)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, llm.ProviderGemini, cfg.Providers[0].Type)
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_TWILIO_SID", "AC999")
	t.Setenv("TEST_GEMINI_KEY", "gk-123")

	path := writeConfig(t, `
server:
  port: "9090"
twilio:
  account_sid: ${TEST_TWILIO_SID}
  auth_token: ${TEST_TWILIO_TOKEN_UNSET}
  whatsapp_from: "whatsapp:+14155238886"
providers:
  - type: gemini
    api_key: ${TEST_GEMINI_KEY}
    model_name: gemini-2.0-flash
    requests_per_minute: 8
  - type: openai
    api_key: sk-plain
database:
  path: ./tmp/test.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "AC999", cfg.Twilio.AccountSID)
	assert.Empty(t, cfg.Twilio.AuthToken, "unset env vars expand to empty, not rejected")
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "gk-123", cfg.Providers[0].APIKey)
	assert.Equal(t, 8, cfg.Providers[0].RequestsPerMinute)
	assert.Equal(t, llm.ProviderOpenAI, cfg.Providers[1].Type)
	assert.Equal(t, "./tmp/test.db", cfg.Database.Path)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
