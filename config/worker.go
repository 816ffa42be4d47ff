package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// WorkerConfig is read from the environment so the dispatcher can be tuned
// per deployment without shipping a config file.
type WorkerConfig struct {
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL      string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	BatchSize     int           `envconfig:"DISPATCH_BATCH_SIZE" default:"50"`
	PollInterval  time.Duration `envconfig:"DISPATCH_POLL_INTERVAL" default:"5s"`
	RetryAttempts int           `envconfig:"DISPATCH_RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"DISPATCH_RETRY_DELAY" default:"2s"`
	MaxRetries    int           `envconfig:"DISPATCH_MAX_RETRIES" default:"3"`
	SMTPHost      string        `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort      int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername  string        `envconfig:"SMTP_USERNAME"`
	SMTPPassword  string        `envconfig:"SMTP_PASSWORD"`
	EmailFrom     string        `envconfig:"EMAIL_FROM" default:"no-reply@hms.local"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
}

func LoadWorkerConfig() (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process worker environment: %w", err)
	}
	return &cfg, nil
}
