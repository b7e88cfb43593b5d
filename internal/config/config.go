// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel         zapcore.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"json"`
	QuestionDuration time.Duration `env:"QUESTION_DURATION" envDefault:"30s"`
	OutboxSize       int           `env:"OUTBOX_SIZE" envDefault:"32"`
	PingInterval     time.Duration `env:"PING_INTERVAL" envDefault:"20s"`
	AllowedOrigins   []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	PublicURL        string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	ArchiveDSN       string        `env:"ARCHIVE_DSN"`
	NATSURL          string        `env:"NATS_URL"`
	NATSSubject      string        `env:"NATS_SUBJECT" envDefault:"quiz.games.finished"`
}

const Prefix = "QUIZ_"

// Load reads envFile if it exists, then parses QUIZ_* variables. A missing
// envFile is not an error; an unreadable one is.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: Prefix})
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.QuestionDuration < time.Second {
		errs = append(errs, fmt.Errorf("QUESTION_DURATION must be at least 1s, got %s", c.QuestionDuration))
	}
	if c.OutboxSize < 1 {
		errs = append(errs, fmt.Errorf("OUTBOX_SIZE must be positive, got %d", c.OutboxSize))
	}
	if c.PingInterval <= 0 {
		errs = append(errs, fmt.Errorf("PING_INTERVAL must be positive, got %s", c.PingInterval))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
