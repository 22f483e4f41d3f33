package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/useautumn/autumn-sub008/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Cache      CacheConfig
	Stripe     StripeConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

// BillingConfig holds the knobs of the reconciliation core itself
type BillingConfig struct {
	// DefaultOverageBehavior applies when a grant does not specify one
	DefaultOverageBehavior types.OverageBehavior
	// ReverseDeductionOrder flips the grant ordering used when spreading a
	// deduction across several grants (newest first instead of oldest first)
	ReverseDeductionOrder bool
}

// StripeConfig holds the provider credentials. An empty secret key runs the
// engine against locally supplied provider state instead of live Stripe.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// CacheConfig controls the customer snapshot cache. Reads must stay correct
// with the cache disabled; the skip-cache path is always available.
type CacheConfig struct {
	Enabled         bool
	TTL             time.Duration
	CleanupInterval time.Duration
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/autumn")

	// Set up environment variables support
	v.SetEnvPrefix("AUTUMN")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Configuration) applyDefaults() {
	if c.Deployment.Mode == "" {
		c.Deployment.Mode = types.ModeLocal
	}
	if c.Logging.Level == "" {
		c.Logging.Level = types.LogLevelInfo
	}
	if c.Billing.DefaultOverageBehavior == "" {
		c.Billing.DefaultOverageBehavior = types.OverageBehaviorCap
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.CleanupInterval == 0 {
		c.Cache.CleanupInterval = 10 * time.Minute
	}
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests. This is useful for running scripts or other non-web applications.
func GetDefaultConfig() *Configuration {
	cfg := &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Cache:      CacheConfig{Enabled: true},
	}
	cfg.applyDefaults()
	return cfg
}
