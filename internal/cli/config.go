package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jobchat-core/server/internal/agent/model"
	pkgredis "github.com/jobchat-core/server/pkg/redis"
)

// AppConfig is every setting of the service, read from the environment
// (with .env loaded first for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis  pkgredis.Config
	Server model.ServerConfig

	// LLM provider
	Provider model.ProviderConfig
	NLU      model.NLUModelConfig
	Response model.ResponseModelConfig

	// Agent configs
	Agent        model.AgentConfig
	Tools        model.ToolsConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
}

// LoadConfig reads envFile when present, then the process environment.
func LoadConfig(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	if _, err := cfg.ConversationTTL(); err != nil {
		return nil, err
	}
	if _, err := cfg.CleanupInterval(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) ConversationTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Conversation.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", c.Conversation.TTL, err)
	}
	return ttl, nil
}

func (c *AppConfig) CleanupInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Conversation.CleanupInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid CONVERSATION_CLEANUP_INTERVAL %q: %w", c.Conversation.CleanupInterval, err)
	}
	return d, nil
}

// Redacted returns a copy safe to print.
func (c AppConfig) Redacted() AppConfig {
	c.Provider.GeminiAPIKey = mask(c.Provider.GeminiAPIKey)
	c.Provider.OpenAIAPIKey = mask(c.Provider.OpenAIAPIKey)
	c.Redis.URL = mask(c.Redis.URL)
	return c
}

func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****"
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration resolved from the environment and the .env file.
API keys and the Redis URL are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(envFile)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg.Redacted())
	},
}
