package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	apperrors "chatbridge/internal/errors"
)

// Contract names selecting which backend request/response shape the bridge
// speaks. The two deployments are mutually exclusive.
const (
	ContractChat      = "chat"
	ContractDataQuery = "data-query"
)

type Config struct {
	AppPort          int    `mapstructure:"APP_PORT"`
	BackendURL       string `mapstructure:"BACKEND_URL"`
	BackendContract  string `mapstructure:"BACKEND_CONTRACT"`
	Model            string `mapstructure:"MODEL"`
	DatabasePath     string `mapstructure:"DATABASE_PATH"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	RevealIntervalMs int    `mapstructure:"REVEAL_INTERVAL_MS"`
}

// Load reads configuration from an optional .env file, the process
// environment and built-in defaults, then validates it.
//
// BACKEND_URL has no default on purpose: silently pointing the bridge at a
// placeholder address produces confusing runtime failures, so a missing URL
// is a fatal configuration error instead.
func Load() (*Config, error) {
	viper.SetDefault("APP_PORT", 8000)
	viper.SetDefault("BACKEND_CONTRACT", ContractChat)
	viper.SetDefault("MODEL", "llama-3.3-70b-versatile")
	viper.SetDefault("DATABASE_PATH", "/data/chatbridge.db")
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("REVEAL_INTERVAL_MS", 40)

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the fail-fast policy on required settings.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("%w: BACKEND_URL is required", apperrors.ErrConfiguration)
	}
	if c.BackendContract != ContractChat && c.BackendContract != ContractDataQuery {
		return fmt.Errorf("%w: BACKEND_CONTRACT must be %q or %q, got %q",
			apperrors.ErrConfiguration, ContractChat, ContractDataQuery, c.BackendContract)
	}
	if c.RevealIntervalMs < 0 {
		return fmt.Errorf("%w: REVEAL_INTERVAL_MS must not be negative", apperrors.ErrConfiguration)
	}
	return nil
}
