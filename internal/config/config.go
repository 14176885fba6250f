// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from flags and
// environment variables. The same Config is used by the server and by
// pipelinectl.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/jessevdk/go-flags"

	"limoseo/internal/ai"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host     string `long:"host" env:"APP_HOST" default:"0.0.0.0" description:"HTTP listen host"`
	Port     string `long:"port" env:"APP_PORT" default:"8080" description:"HTTP listen port"`
	Env      string `long:"env" env:"APP_ENV" default:"development" choice:"development" choice:"production" choice:"testing" description:"Runtime environment"`
	LogLevel string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Minimum log level"`

	// Document store
	Backend string `long:"store" env:"STORE_BACKEND" default:"postgres" choice:"memory" choice:"postgres" choice:"mongo" description:"Document store backend"`

	// PostgreSQL connection
	DBHost     string `long:"db-host" env:"POSTGRES_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"POSTGRES_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"POSTGRES_USER" default:"limoseo" description:"Database user"`
	DBPassword string `long:"db-password" env:"POSTGRES_PASSWORD" default:"changeme" description:"Database password"`
	DBName     string `long:"db-name" env:"POSTGRES_DB" default:"limoseo" description:"Database name"`

	// MongoDB connection
	MongoURI      string `long:"mongo-uri" env:"MONGO_URI" default:"mongodb://localhost:27017" description:"MongoDB connection URI"`
	MongoDatabase string `long:"mongo-db" env:"MONGO_DB" default:"limoseo" description:"MongoDB database name"`

	// Valkey (Redis-compatible), used for run locks, sessions and the status cache
	ValkeyHost     string `long:"valkey-host" env:"VALKEY_HOST" default:"localhost" description:"Valkey host (empty disables Valkey)"`
	ValkeyPort     string `long:"valkey-port" env:"VALKEY_PORT" default:"6379" description:"Valkey port"`
	ValkeyPassword string `long:"valkey-password" env:"VALKEY_PASSWORD" description:"Valkey password"`
	ValkeyDB       int    `long:"valkey-db" env:"VALKEY_DB" default:"0" description:"Valkey database number"`

	// AI provider settings
	AIProvider      string        `long:"ai-provider" env:"AI_PROVIDER" default:"gemini" choice:"gemini" choice:"openai" choice:"claude" choice:"mistral" description:"Active text generation provider"`
	AITimeout       time.Duration `long:"ai-timeout" env:"AI_TIMEOUT" default:"60s" description:"Per-call generation timeout"`
	MaxOutputTokens int           `long:"max-output-tokens" env:"AI_MAX_OUTPUT_TOKENS" default:"4096" description:"Output token budget per page"`
	Vision          bool          `long:"vision" env:"AI_VISION" description:"Send location photos with generation prompts"`

	GeminiAPIKey   string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key"`
	GeminiModel    string `long:"gemini-model" env:"GEMINI_MODEL" description:"Gemini model"`
	GeminiProModel string `long:"gemini-pro-model" env:"GEMINI_PRO_MODEL" description:"Gemini model for complex prompts"`
	GeminiBaseURL  string `long:"gemini-base-url" env:"GEMINI_BASE_URL" description:"Gemini API base URL"`
	OpenAIAPIKey   string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIModel    string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI model"`
	OpenAIBaseURL  string `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"OpenAI API base URL"`
	ClaudeAPIKey   string `long:"claude-api-key" env:"CLAUDE_API_KEY" description:"Claude API key"`
	ClaudeModel    string `long:"claude-model" env:"CLAUDE_MODEL" default:"claude-3-5-sonnet-latest" description:"Claude model"`
	ClaudeBaseURL  string `long:"claude-base-url" env:"CLAUDE_BASE_URL" description:"Claude API base URL"`
	MistralAPIKey  string `long:"mistral-api-key" env:"MISTRAL_API_KEY" description:"Mistral API key"`
	MistralModel   string `long:"mistral-model" env:"MISTRAL_MODEL" default:"mistral-large-latest" description:"Mistral model"`
	MistralBaseURL string `long:"mistral-base-url" env:"MISTRAL_BASE_URL" description:"Mistral API base URL"`

	// Authentication
	APITokens []string `long:"api-token" env:"API_TOKENS" env-delim:"," description:"Admin API tokens as id:role:bcrypt-hash"`

	// Catalog
	CatalogPath string `long:"catalog" env:"CATALOG_PATH" description:"Catalog YAML file (default: embedded catalog)"`

	// Scheduler
	DisableScheduler bool          `long:"no-scheduler" env:"SCHEDULER_DISABLED" description:"Do not run scheduled triggers in the server"`
	DailySpec        string        `long:"daily-spec" env:"SCHEDULE_DAILY" default:"0 2 * * *" description:"Cron spec of the daily selection run"`
	HourlySpec       string        `long:"hourly-spec" env:"SCHEDULE_HOURLY" default:"0 * * * *" description:"Cron spec of the queue run"`
	SchedulesSpec    string        `long:"schedules-spec" env:"SCHEDULE_GENERATIONS" default:"15 * * * *" description:"Cron spec of the content schedule check"`
	Timezone         string        `long:"timezone" env:"SCHEDULE_TZ" default:"America/Chicago" description:"Timezone of the cron specs"`
	Threshold        float64       `long:"threshold" env:"REGEN_THRESHOLD" default:"50" description:"Quality score below which content is regenerated"`
	DailyMax         int           `long:"daily-max" env:"REGEN_DAILY_MAX" default:"50" description:"Tasks queued per daily run"`
	QueueMax         int           `long:"queue-max" env:"REGEN_QUEUE_MAX" default:"20" description:"Tasks processed per queue run"`
	StaleAfter       time.Duration `long:"stale-after" env:"REGEN_STALE_AFTER" default:"2h" description:"Processing tasks older than this are failed"`

	// Notifications
	SendGridAPIKey string   `long:"sendgrid-api-key" env:"SENDGRID_API_KEY" description:"SendGrid API key (empty logs notifications instead)"`
	NotifyFrom     string   `long:"notify-from" env:"NOTIFY_FROM" default:"pipeline@localhost" description:"Notification sender address"`
	NotifyFromName string   `long:"notify-from-name" env:"NOTIFY_FROM_NAME" default:"Content Pipeline" description:"Notification sender name"`
	NotifyTo       []string `long:"notify-to" env:"NOTIFY_TO" env-delim:"," description:"Notification recipients"`
}

// Load parses args (without the program name) and the environment. It
// returns nil, nil when help was requested.
func Load(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that flag parsing cannot.
func (c *Config) Validate() error {
	if c.Env == "production" {
		if c.Backend == BackendPostgres && c.DBPassword == "changeme" {
			return fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if c.Backend == BackendMemory {
			return fmt.Errorf("the memory store cannot be used in production")
		}
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold must be between 0 and 100, got %v", c.Threshold)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ValkeyEnabled reports whether a Valkey host is configured.
func (c *Config) ValkeyEnabled() bool {
	return strings.TrimSpace(c.ValkeyHost) != ""
}

// Location returns the scheduler timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Providers returns the AI provider settings keyed by provider name.
func (c *Config) Providers() map[string]ai.ProviderConfig {
	return map[string]ai.ProviderConfig{
		"gemini":  {APIKey: c.GeminiAPIKey, Model: c.GeminiModel, ProModel: c.GeminiProModel, BaseURL: c.GeminiBaseURL},
		"openai":  {APIKey: c.OpenAIAPIKey, Model: c.OpenAIModel, BaseURL: c.OpenAIBaseURL},
		"claude":  {APIKey: c.ClaudeAPIKey, Model: c.ClaudeModel, BaseURL: c.ClaudeBaseURL},
		"mistral": {APIKey: c.MistralAPIKey, Model: c.MistralModel, BaseURL: c.MistralBaseURL},
	}
}
