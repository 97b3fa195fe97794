// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/Shivanand-hulikatti/event-checkout/internal/database"
)

// Store, session and notification drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverKafka    = "kafka"
	DriverLog      = "log"
)

// Admission modes.
const (
	AdmissionOptimistic = "optimistic"
	AdmissionSerialized = "serialized"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	StoreDriver string          `env:"STORE_DRIVER" envDefault:"postgres"`
	DB          database.Config `envPrefix:"DB_"`

	SessionDriver     string `env:"SESSION_DRIVER" envDefault:"redis"`
	RedisAddr         string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	SessionTTLMinutes int    `env:"SESSION_TTL_MINUTES" envDefault:"120"`

	NotificationDriver string   `env:"NOTIFICATION_DRIVER" envDefault:"log"`
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	NotificationTopic  string   `env:"NOTIFICATION_TOPIC" envDefault:"eventbooking.notifications"`

	CheckoutLockingTimeSeconds int    `env:"CHECKOUT_LOCKING_TIME_SECONDS" envDefault:"3600"`
	SweepIntervalSeconds       int    `env:"SWEEP_INTERVAL_SECONDS" envDefault:"60"`
	CheckoutStepParam          string `env:"CHECKOUT_STEP_PARAM" envDefault:"step"`
	AdmissionMode              string `env:"ADMISSION_MODE" envDefault:"optimistic"`
	StrictStateTransitions     bool   `env:"STRICT_STATE_TRANSITIONS" envDefault:"false"`
	CheckoutCompletionURL      string `env:"CHECKOUT_COMPLETION_URL" envDefault:"/checkout/complete"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if err := oneOf("STORE_DRIVER", c.StoreDriver, DriverPostgres, DriverMemory); err != nil {
		return err
	}
	if err := oneOf("SESSION_DRIVER", c.SessionDriver, DriverRedis, DriverMemory); err != nil {
		return err
	}
	if err := oneOf("NOTIFICATION_DRIVER", c.NotificationDriver, DriverKafka, DriverLog); err != nil {
		return err
	}
	if err := oneOf("ADMISSION_MODE", c.AdmissionMode, AdmissionOptimistic, AdmissionSerialized); err != nil {
		return err
	}
	if c.CheckoutLockingTimeSeconds <= 0 {
		return fmt.Errorf("invalid checkout locking time: %d", c.CheckoutLockingTimeSeconds)
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("invalid sweep interval: %d", c.SweepIntervalSeconds)
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("invalid session TTL: %d", c.SessionTTLMinutes)
	}
	if c.CheckoutStepParam == "" {
		return fmt.Errorf("CHECKOUT_STEP_PARAM must not be empty")
	}
	if c.CheckoutCompletionURL == "" {
		return fmt.Errorf("CHECKOUT_COMPLETION_URL must not be empty")
	}
	if c.NotificationDriver == DriverKafka && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required for the kafka notification driver")
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q, want one of %v", key, value, allowed)
}

// CheckoutLockingTime is the TTL after which unfinished checkouts are purged.
func (c *Config) CheckoutLockingTime() time.Duration {
	return time.Duration(c.CheckoutLockingTimeSeconds) * time.Second
}

// SweepInterval is the period of the expiry sweeper.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// SessionTTL is the lifetime of an idle checkout session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// SerializedAdmission reports whether admission is re-checked under the event lock.
func (c *Config) SerializedAdmission() bool {
	return c.AdmissionMode == AdmissionSerialized
}
