// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Search   SearchConfig   `mapstructure:"search"`
	Services ServicesConfig `mapstructure:"services"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// ChatConfig holds chat transport configuration.
type ChatConfig struct {
	// Transport selects the inbound/outbound chat backend. "webhook"
	// receives messages over HTTP and replies through a callback URL.
	Transport string `mapstructure:"transport"`
	// WebhookURL is the outbound delivery endpoint for the webhook transport.
	WebhookURL string `mapstructure:"webhook_url"`
	// WebhookToken authenticates inbound webhook posts.
	WebhookToken string `mapstructure:"webhook_token"`
}

// ApprovalConfig holds the operator channel and fallback policy.
type ApprovalConfig struct {
	// OperatorID is the chat destination that receives approval prompts.
	OperatorID string `mapstructure:"operator_id"`
	// Policy applies when no operator channel is reachable:
	// manual, auto_approve, or auto_deny.
	Policy string `mapstructure:"policy"`
}

// SearchConfig holds search cache tuning.
type SearchConfig struct {
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes"`
}

// ServicesConfig points at the optional service seed file.
type ServicesConfig struct {
	// SeedPath is a YAML file of service configurations imported on first
	// start when the services table is empty.
	SeedPath string `mapstructure:"seed_path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "./data/chatarr.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Chat: ChatConfig{
			Transport: "webhook",
		},
		Approval: ApprovalConfig{
			Policy: "manual",
		},
		Search: SearchConfig{
			CacheTTLMinutes: 5,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.chatarr")
	}

	v.SetEnvPrefix("CHATARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.path", "./data/chatarr.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("chat.transport", "webhook")
	v.SetDefault("chat.webhook_url", "")
	v.SetDefault("chat.webhook_token", "")

	v.SetDefault("approval.operator_id", "")
	v.SetDefault("approval.policy", "manual")

	v.SetDefault("search.cache_ttl_minutes", 5)

	v.SetDefault("services.seed_path", "")
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
