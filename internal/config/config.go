// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// feedHardCap is the store's page size ceiling.
const feedHardCap = 100

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Server    ServerConfig
	Auth      AuthConfig
	Feed      FeedConfig
	SSE       SSEConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// DataConfig locates persistent state. The Badger directory, the search index
// and the token key all live under BasePath.
type DataConfig struct {
	BasePath string `env:"DATA_PATH"`
}

// DatabasePath is the Badger directory.
func (d DataConfig) DatabasePath() string { return filepath.Join(d.BasePath, "db") }

// SearchPath is the bleve index directory.
func (d DataConfig) SearchPath() string { return filepath.Join(d.BasePath, "search") }

// KeyPath is the PASETO key file.
func (d DataConfig) KeyPath() string { return filepath.Join(d.BasePath, "auth.key") }

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT"  envDefault:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT"  envDefault:"60s"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key, set by auth.LoadOrGenerateKey at startup.
	AccessTokenKey      []byte        `env:"-"`
	AccessTokenDuration time.Duration `env:"ACCESS_TOKEN_DURATION" envDefault:"24h"`
}

// FeedConfig bounds feed pagination.
type FeedConfig struct {
	DefaultLimit int `env:"FEED_DEFAULT_LIMIT" envDefault:"20"`
	MaxLimit     int `env:"FEED_MAX_LIMIT"     envDefault:"100"`
}

// SSEConfig tunes the activity stream.
type SSEConfig struct {
	HeartbeatInterval time.Duration `env:"SSE_HEARTBEAT_INTERVAL" envDefault:"30s"`
	ClientBuffer      int           `env:"SSE_CLIENT_BUFFER"      envDefault:"100"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// RateLimitConfig limits the unauthenticated auth endpoints per client IP.
type RateLimitConfig struct {
	AuthPerMinute int `env:"AUTH_RATE_PER_MINUTE" envDefault:"10"`
	AuthBurst     int `env:"AUTH_RATE_BURST"      envDefault:"5"`
}

// CORSConfig lists allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig over an explicit argument list.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bestreads", flag.ContinueOnError)

	envName := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for persistent data")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	accessTokenDuration := fs.Duration("access-token-duration", 0, "Access token lifetime (e.g., 24h)")
	feedMaxLimit := fs.Int("feed-max-limit", 0, "Largest feed page (default: 100)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// A missing .env file is fine.
	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", *envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	overrideString(&cfg.App.Environment, *envName)
	overrideString(&cfg.Logger.Level, *logLevel)
	overrideString(&cfg.Data.BasePath, *dataPath)
	overrideString(&cfg.Server.Port, *serverPort)
	if *accessTokenDuration > 0 {
		cfg.Auth.AccessTokenDuration = *accessTokenDuration
	}
	if *feedMaxLimit > 0 {
		cfg.Feed.MaxLimit = *feedMaxLimit
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"development", "staging", "production"}, c.App.Environment) {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("access token duration must be positive")
	}
	if c.Feed.DefaultLimit <= 0 || c.Feed.MaxLimit <= 0 {
		return errors.New("feed limits must be positive")
	}
	if c.Feed.DefaultLimit > c.Feed.MaxLimit {
		return fmt.Errorf("feed default limit %d exceeds max limit %d", c.Feed.DefaultLimit, c.Feed.MaxLimit)
	}
	if c.Feed.MaxLimit > feedHardCap {
		return fmt.Errorf("feed max limit %d exceeds hard cap %d", c.Feed.MaxLimit, feedHardCap)
	}
	if c.SSE.ClientBuffer <= 0 {
		return errors.New("sse client buffer must be positive")
	}
	if c.SSE.HeartbeatInterval <= 0 {
		return errors.New("sse heartbeat interval must be positive")
	}
	if c.RateLimit.AuthPerMinute <= 0 || c.RateLimit.AuthBurst <= 0 {
		return errors.New("auth rate limit must be positive")
	}
	return nil
}

func overrideString(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

// expandDataPath expands ~ and makes the path absolute, defaulting to ~/BestReads.
func (c *Config) expandDataPath() error {
	path := c.Data.BasePath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, "BestReads")
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	c.Data.BasePath = filepath.Clean(abs)
	return nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments). Variables already set in
// the environment win.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}
	return scanner.Err()
}
