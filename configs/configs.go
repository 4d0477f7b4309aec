package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"aws-sqs-messenger/internal/pkg/queue"
)

// Config defines all environment variables and derived config for the gateway.
type Config struct {
	// Transformed time.Duration fields (not loaded from env directly)
	QueueWaitTimeDuration          time.Duration `env:"-"` // Long-poll wait (duration, capped at 20s)
	QueueVisibilityTimeoutDuration time.Duration `env:"-"` // Default receive visibility (duration)

	QueueType                     string `env:"QUEUE_TYPE" envDefault:"sqs"`
	QueueWaitTimeSeconds          int    `env:"QUEUE_WAIT_TIME_SECONDS" envDefault:"20"`
	QueueVisibilityTimeoutSeconds int    `env:"QUEUE_VISIBILITY_TIMEOUT_SECONDS" envDefault:"60"`

	QueueAwsSqsRegion    string `env:"QUEUE_AWS_SQS_REGION"`
	QueueAwsSqsEndpoint  string `env:"QUEUE_AWS_SQS_ENDPOINT"`
	QueueAwsSqsAccountID string `env:"QUEUE_AWS_SQS_ACCOUNT_ID"`
	QueueAwsSqsBaseURL   string `env:"QUEUE_AWS_SQS_BASE_URL"`

	QueueRedisEndpoint  string `env:"REDIS_QUEUE_ENDPOINT"`
	QueueRedisKeyPrefix string `env:"REDIS_QUEUE_KEY_PREFIX" envDefault:"messenger:"`
	QueueRedisDB        int    `env:"REDIS_QUEUE_DB" envDefault:"0"`

	HTTPAddr         string `env:"HTTP_ADDR" envDefault:":8080"`
	HTTPMaxBodyBytes int64  `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
}

// Parse loads configuration from environment variables, validates and normalizes it.
func Parse() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.normalize()

	return &cfg, nil
}

// validate performs all required configuration checks.
func (c *Config) validate() error {
	if c.QueueType != "redis" && c.QueueType != "sqs" {
		return errors.New("QUEUE_TYPE must be 'redis' or 'sqs'")
	}

	if c.QueueWaitTimeSeconds < 0 {
		return errors.New("QUEUE_WAIT_TIME_SECONDS must not be negative")
	}

	if c.QueueVisibilityTimeoutSeconds <= 0 || c.QueueVisibilityTimeoutSeconds > 43200 {
		return errors.New("QUEUE_VISIBILITY_TIMEOUT_SECONDS must be between 1 and 43200")
	}

	if c.HTTPMaxBodyBytes <= 0 {
		return errors.New("HTTP_MAX_BODY_BYTES must be positive")
	}

	if c.QueueType == "sqs" {
		if c.QueueAwsSqsRegion == "" {
			return errors.New("QUEUE_AWS_SQS_REGION is required for SQS queue type")
		}
		if c.QueueAwsSqsBaseURL == "" && c.QueueAwsSqsAccountID == "" {
			return errors.New("QUEUE_AWS_SQS_BASE_URL or QUEUE_AWS_SQS_ACCOUNT_ID is required for SQS queue type")
		}
	}

	if c.QueueType == "redis" {
		if c.QueueRedisEndpoint == "" {
			return errors.New("REDIS_QUEUE_ENDPOINT is required for Redis queue type")
		}
	}

	return nil
}

// normalize converts int values to duration and sets derived fields.
func (c *Config) normalize() {
	c.QueueWaitTimeDuration = queue.ClampWait(time.Duration(c.QueueWaitTimeSeconds) * time.Second)
	c.QueueVisibilityTimeoutDuration = time.Duration(c.QueueVisibilityTimeoutSeconds) * time.Second

	if c.QueueType == "sqs" && c.QueueAwsSqsBaseURL == "" {
		host := fmt.Sprintf("https://sqs.%s.amazonaws.com", c.QueueAwsSqsRegion)
		if c.QueueAwsSqsEndpoint != "" {
			host = strings.TrimSuffix(c.QueueAwsSqsEndpoint, "/")
		}
		c.QueueAwsSqsBaseURL = host + "/" + c.QueueAwsSqsAccountID
	}
}
