package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process configuration, loaded once at startup and passed to
// every component that needs it. Nothing reads viper after Load returns.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Memory MemoryConfig `mapstructure:"memory"`
	Agent  AgentConfig  `mapstructure:"agent"`
	Tools  ToolsConfig  `mapstructure:"tools"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	EnableCORS bool   `mapstructure:"enable_cors"`
	Debug      bool   `mapstructure:"debug"`
}

type LLMConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

type MemoryConfig struct {
	PersistPath string `mapstructure:"persist_path"`
	Collection  string `mapstructure:"collection"`
	EmbedModel  string `mapstructure:"embed_model"`
}

type AgentConfig struct {
	ReasoningCapacity int `mapstructure:"reasoning_capacity"`
	TopKMemories      int `mapstructure:"top_k_memories"`
	DefaultIterations int `mapstructure:"default_iterations"`
	RetryMaxAttempts  int `mapstructure:"retry_max_attempts"`
}

type ToolsConfig struct {
	TavilyAPIKey string `mapstructure:"tavily_api_key"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.debug", false)

	// Explicit empty defaults so AutomaticEnv-provided values survive Unmarshal.
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout_seconds", 120)

	v.SetDefault("memory.persist_path", "")
	v.SetDefault("memory.collection", "learnings")
	v.SetDefault("memory.embed_model", "text-embedding-3-small")

	v.SetDefault("agent.reasoning_capacity", 5)
	v.SetDefault("agent.top_k_memories", 3)
	v.SetDefault("agent.default_iterations", 3)
	v.SetDefault("agent.retry_max_attempts", 3)

	v.SetDefault("tools.tavily_api_key", "")
}

// Load reads pearl-config.yaml from $HOME or the working directory, with
// PEARL_-prefixed environment variables taking precedence. A missing config
// file is fine; defaults plus environment cover everything.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("pearl-config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PEARL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the knobs that have no safe fallback.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("config: llm.api_key is required (set PEARL_LLM_API_KEY or pearl-config.yaml)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Agent.ReasoningCapacity <= 0 {
		return fmt.Errorf("config: agent.reasoning_capacity must be positive")
	}
	if c.Agent.DefaultIterations <= 0 {
		return fmt.Errorf("config: agent.default_iterations must be positive")
	}
	return nil
}
