// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"time"

	"github.com/okian/exambot/internal/adapters/source"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "json" or "console".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// AdminToken guards mutating routes. Empty means every caller is privileged.
	AdminToken string `koanf:"admin_token"`
	// RateLimit caps mutating requests per client IP per minute. Zero disables it.
	RateLimit int `koanf:"rate_limit"`

	// SourceURL is where "update" fetches the timetable from (http(s) or s3).
	SourceURL string `koanf:"source_url"`
	// DataFile is the local copy of the timetable.
	DataFile string `koanf:"data_file"`
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string `koanf:"sheet"`

	FirstRow      int  `koanf:"first_row"`
	MaxRow        int  `koanf:"max_row"`
	BlankRunLimit int  `koanf:"blank_run_limit"`
	AllowEmpty    bool `koanf:"allow_empty"`

	// MessageBudget is the chat platform's per-message character ceiling.
	MessageBudget int `koanf:"message_budget"`

	// RefreshInterval schedules periodic updates from SourceURL. Zero disables.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	// WatchDataFile re-ingests when DataFile changes on disk.
	WatchDataFile bool `koanf:"watch_data_file"`

	QueueSize  int           `koanf:"queue_size"`
	DedupeSize int           `koanf:"dedupe_size"`
	JobTimeout time.Duration `koanf:"job_timeout"`

	// NotifyWorkers bounds concurrent reconciliations in a batch.
	NotifyWorkers int `koanf:"notify_workers"`

	// RedisAddr enables the cross-process course lock when set.
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	LockTTL       time.Duration `koanf:"lock_ttl"`

	// AMQPURL enables event publishing to a broker when set.
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`

	S3Endpoint  string `koanf:"s3_endpoint"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`
	S3Region    string `koanf:"s3_region"`
	S3UseSSL    bool   `koanf:"s3_use_ssl"`

	// BotName authors posts on the in-memory channel board.
	BotName string `koanf:"bot_name"`
	// Channels are created on the board at startup.
	Channels []string `koanf:"channels"`
	// AutoCreateChannels makes unknown channels spring into existence on lookup.
	AutoCreateChannels bool `koanf:"auto_create_channels"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "json",
		Addr:            ":9080",
		RateLimit:       30,
		DataFile:        "data/timetable.xlsx",
		FirstRow:        4,
		MaxRow:          0,
		BlankRunLimit:   25,
		MessageBudget:   2000,
		RefreshInterval: 0,
		WatchDataFile:   true,
		QueueSize:       64,
		DedupeSize:      1024,
		JobTimeout:      5 * time.Minute,
		NotifyWorkers:   4,
		LockTTL:         30 * time.Second,
		AMQPExchange:    "exambot.events",
		S3UseSSL:        true,
		BotName:         "exambot",
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DataFile == "" {
		return fmt.Errorf("%w: data_file must not be empty", ErrInvalidConfig)
	}
	if c.MessageBudget <= 0 {
		return fmt.Errorf("%w: message_budget must be positive, got %d", ErrInvalidConfig, c.MessageBudget)
	}
	if c.FirstRow < 1 {
		return fmt.Errorf("%w: first_row must be at least 1, got %d", ErrInvalidConfig, c.FirstRow)
	}
	if c.MaxRow != 0 && c.MaxRow < c.FirstRow {
		return fmt.Errorf("%w: max_row %d is before first_row %d", ErrInvalidConfig, c.MaxRow, c.FirstRow)
	}
	if c.BlankRunLimit < 0 {
		return fmt.Errorf("%w: blank_run_limit must not be negative", ErrInvalidConfig)
	}
	if c.SourceURL != "" {
		if _, err := source.ValidateURL(c.SourceURL); err != nil {
			return fmt.Errorf("%w: source_url: %w", ErrInvalidConfig, err)
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("%w: refresh_interval must not be negative", ErrInvalidConfig)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("%w: log_format must be json or console, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
