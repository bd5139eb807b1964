package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const Prefix = "TYPERACE"

type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogDev          bool          `envconfig:"LOG_DEV" default:"false"`
	RoundDuration   time.Duration `envconfig:"ROUND_DURATION" default:"60s"`
	MinParticipants int           `envconfig:"MIN_PARTICIPANTS" default:"1"`
	OutboxSize      int           `envconfig:"OUTBOX_SIZE" default:"32"`
	InboxSize       int           `envconfig:"INBOX_SIZE" default:"256"`
	PingInterval    time.Duration `envconfig:"PING_INTERVAL" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	MaxMessageBytes int64         `envconfig:"MAX_MESSAGE_BYTES" default:"32768"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	ResultQueueSize int           `envconfig:"RESULT_QUEUE_SIZE" default:"64"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file and then the TYPERACE_* environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"ROUND_DURATION":   c.RoundDuration,
		"PING_INTERVAL":    c.PingInterval,
		"WRITE_TIMEOUT":    c.WriteTimeout,
		"SHUTDOWN_TIMEOUT": c.ShutdownTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s_%s must be positive, got %s", Prefix, name, d))
		}
	}
	if c.MinParticipants < 1 {
		errs = append(errs, fmt.Errorf("%s_MIN_PARTICIPANTS must be at least 1, got %d", Prefix, c.MinParticipants))
	}
	if c.OutboxSize < 1 || c.InboxSize < 1 || c.ResultQueueSize < 1 {
		errs = append(errs, fmt.Errorf("%s queue sizes must be at least 1", Prefix))
	}
	if c.MaxMessageBytes < 1 {
		errs = append(errs, fmt.Errorf("%s_MAX_MESSAGE_BYTES must be positive", Prefix))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
