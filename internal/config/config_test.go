package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateury/next-gen-consultant/internal/conversation"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", "llm:\n  api_key: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", cfg.Address())
	assert.Equal(t, "gpt-oss-120b", cfg.LLM.Model)
	assert.Equal(t, int64(2048), cfg.LLM.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, conversation.DefaultToolIterationLimit, cfg.Conversation.ToolIterationLimit)
	assert.Equal(t, "strip", cfg.Conversation.ExhaustionPolicy)
	assert.Equal(t, int64(65536), cfg.WS.MaxMessageSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	prompt := writeFile(t, "prompt.txt", "be helpful")
	path := writeFile(t, "config.yaml", `
server:
  port: 9000
llm:
  mode: mock
  timeout: 5s
backend:
  url: http://backend:8080
conversation:
  tool_iteration_limit: 2
  system_prompt_file: `+prompt+`
ws:
  ping_interval: 1500ms
`)

	t.Setenv("SALES_API_URL", "http://sales:9999")
	t.Setenv("CONSULTANT_CONVERSATION_EXHAUSTION_POLICY", "verbatim")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "mock", cfg.LLM.Mode)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "http://sales:9999", cfg.Backend.URL)
	assert.Equal(t, 2, cfg.Conversation.ToolIterationLimit)
	assert.Equal(t, "be helpful", cfg.Conversation.SystemPrompt)
	assert.Equal(t, "verbatim", cfg.Conversation.ExhaustionPolicy)
	assert.Equal(t, 1500*time.Millisecond, cfg.WS.PingInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadLegacyAPIKey(t *testing.T) {
	path := writeFile(t, "config.yaml", "log:\n  level: debug\n")
	t.Setenv("SCW_SECRET_KEY", "scw-secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scw-secret", cfg.LLM.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingPromptFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "conversation:\n  system_prompt_file: /does/not/exist\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:       ServerConfig{Port: 8000},
			LLM:          LLMConfig{Mode: "openai", APIKey: "k", Model: "m"},
			Backend:      BackendConfig{URL: "http://localhost:8080"},
			Conversation: ConversationConfig{ToolIterationLimit: 3, ExhaustionPolicy: "strip"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }},
		{"unknown mode", func(c *Config) { c.LLM.Mode = "local" }},
		{"zero limit", func(c *Config) { c.Conversation.ToolIterationLimit = 0 }},
		{"unknown policy", func(c *Config) { c.Conversation.ExhaustionPolicy = "retry" }},
		{"no backend", func(c *Config) { c.Backend.URL = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"archive without dsn", func(c *Config) { c.Archive.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	c := valid()
	c.LLM = LLMConfig{Mode: "mock"}
	assert.NoError(t, c.Validate(), "mock mode needs no api key")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1), "debug enabled")

	logger, err = NewLogger(LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(0), "info disabled")

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = NewLogger(LogConfig{Format: "xml"})
	assert.Error(t, err)
}
