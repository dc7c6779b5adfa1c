// Package config loads the consultant configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mateury/next-gen-consultant/internal/conversation"
)

// Config holds all configuration for the consultant service.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Backend      BackendConfig      `mapstructure:"backend"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	WS           WSConfig           `mapstructure:"ws"`
	Policy       PolicyConfig       `mapstructure:"policy"`
	Archive      ArchiveConfig      `mapstructure:"archive"`
	Log          LogConfig          `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LLMConfig holds the model provider configuration
type LLMConfig struct {
	Mode        string        `mapstructure:"mode"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int64         `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// BackendConfig holds the sales backend configuration
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ConversationConfig holds conversation engine configuration
type ConversationConfig struct {
	ToolIterationLimit  int    `mapstructure:"tool_iteration_limit"`
	SystemPrompt        string `mapstructure:"system_prompt"`
	SystemPromptFile    string `mapstructure:"system_prompt_file"`
	ToolResultsTemplate string `mapstructure:"tool_results_template"`
	Greeting            string `mapstructure:"greeting"`
	Apology             string `mapstructure:"apology"`
	ExhaustionPolicy    string `mapstructure:"exhaustion_policy"`
	ExhaustionFallback  string `mapstructure:"exhaustion_fallback"`
}

// WSConfig holds WebSocket connection settings
type WSConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

// PolicyConfig holds the tool policy configuration
type PolicyConfig struct {
	File string `mapstructure:"file"`
}

// ArchiveConfig holds the transcript archive configuration
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CONSULTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Conversation.SystemPromptFile != "" {
		prompt, err := os.ReadFile(cfg.Conversation.SystemPromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read system prompt: %w", err)
		}
		cfg.Conversation.SystemPrompt = string(prompt)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("llm.mode", "openai")
	v.SetDefault("llm.base_url", "https://api.scaleway.ai/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-oss-120b")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_p", 1.0)
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("backend.url", "http://localhost:8080")
	v.SetDefault("backend.timeout", 10*time.Second)

	v.SetDefault("conversation.tool_iteration_limit", conversation.DefaultToolIterationLimit)
	v.SetDefault("conversation.system_prompt", "")
	v.SetDefault("conversation.system_prompt_file", "")
	v.SetDefault("conversation.tool_results_template", "")
	v.SetDefault("conversation.greeting", "")
	v.SetDefault("conversation.apology", "")
	v.SetDefault("conversation.exhaustion_policy", conversation.ExhaustionStrip)
	v.SetDefault("conversation.exhaustion_fallback", "")

	v.SetDefault("ws.ping_interval", 30*time.Second)
	v.SetDefault("ws.write_timeout", 10*time.Second)
	v.SetDefault("ws.read_timeout", 60*time.Second)
	v.SetDefault("ws.max_message_size", 65536)
	v.SetDefault("ws.send_buffer", 256)

	v.SetDefault("policy.file", "")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.dsn", "consultant.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// bindLegacyEnv keeps the variable names earlier deployments used.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"llm.api_key": {"CONSULTANT_LLM_API_KEY", "SCW_SECRET_KEY", "OPENAI_API_KEY"},
		"backend.url": {"CONSULTANT_BACKEND_URL", "SALES_API_URL"},
		"server.port": {"CONSULTANT_SERVER_PORT", "HTTP_PORT"},
		"log.level":   {"CONSULTANT_LOG_LEVEL", "LOG_LEVEL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.LLM.Mode {
	case "openai":
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("llm.api_key is required in openai mode"))
		}
		if c.LLM.Model == "" {
			errs = append(errs, errors.New("llm.model is required"))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown llm.mode %q", c.LLM.Mode))
	}
	if c.Backend.URL == "" {
		errs = append(errs, errors.New("backend.url is required"))
	}
	if c.Conversation.ToolIterationLimit < 1 {
		errs = append(errs, fmt.Errorf("conversation.tool_iteration_limit must be at least 1, got %d", c.Conversation.ToolIterationLimit))
	}
	switch c.Conversation.ExhaustionPolicy {
	case "strip", "verbatim":
	default:
		errs = append(errs, fmt.Errorf("unknown conversation.exhaustion_policy %q", c.Conversation.ExhaustionPolicy))
	}
	if c.Archive.Enabled && c.Archive.DSN == "" {
		errs = append(errs, errors.New("archive.dsn is required when the archive is enabled"))
	}
	return errors.Join(errs...)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
