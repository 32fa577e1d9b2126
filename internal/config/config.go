package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Upstream  UpstreamConfig  `toml:"upstream"`
	Downloads DownloadsConfig `toml:"downloads"`
	Logging   LoggingConfig   `toml:"logging"`
	Reporting ReportingConfig `toml:"reporting"`
	Ngrok     NgrokConfig     `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port            string `toml:"port"`
	Host            string `toml:"host"`
	StaticDir       string `toml:"static_dir"`
	EnableCORS      bool   `toml:"enable_cors"`
	ReadTimeout     int    `toml:"read_timeout_seconds"`
	WriteTimeout    int    `toml:"write_timeout_seconds"`
	IdleTimeout     int    `toml:"idle_timeout_seconds"`
	ShutdownTimeout int    `toml:"shutdown_timeout_seconds"`
	WatchConfig     bool   `toml:"watch_config"`
}

// UpstreamConfig describes the third-party music API the relay talks to
type UpstreamConfig struct {
	BaseURL         string `toml:"base_url"`
	RequestTimeout  int    `toml:"request_timeout_seconds"`
	DownloadTimeout int    `toml:"download_timeout_seconds"`
	UserAgent       string `toml:"user_agent"`
}

// DownloadsConfig contains temp file handling for the download relay
type DownloadsConfig struct {
	TempDir        string `toml:"temp_dir"`
	DefaultQuality string `toml:"default_quality"`
	MaxSizeMB      int64  `toml:"max_size_mb"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// ReportingConfig contains optional Sentry error reporting settings
type ReportingConfig struct {
	SentryDSN        string  `toml:"sentry_dsn"`
	Environment      string  `toml:"environment"`
	TracesSampleRate float64 `toml:"traces_sample_rate"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled      bool   `toml:"enabled"`
	AuthToken    string `toml:"auth_token"`
	Domain       string `toml:"domain"`
	EnableAuth   bool   `toml:"enable_auth"`
	AuthProvider string `toml:"auth_provider"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "5000",
			Host:            "0.0.0.0",
			StaticDir:       "./static",
			EnableCORS:      true,
			ReadTimeout:     30,
			WriteTimeout:    300,
			IdleTimeout:     120,
			ShutdownTimeout: 10,
			WatchConfig:     true,
		},
		Upstream: UpstreamConfig{
			BaseURL:         "https://jiosaavn-ts.vercel.app",
			RequestTimeout:  15,
			DownloadTimeout: 120,
			UserAgent:       "saavnrelay/1.0",
		},
		Downloads: DownloadsConfig{
			TempDir:        os.TempDir(),
			DefaultQuality: "low",
			MaxSizeMB:      0,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
		Reporting: ReportingConfig{
			SentryDSN:        "",
			Environment:      "production",
			TracesSampleRate: 0,
		},
		Ngrok: NgrokConfig{
			Enabled:      false,
			AuthToken:    "",
			Domain:       "",
			EnableAuth:   false,
			AuthProvider: "google",
		},
	}
}

// LoadConfig loads configuration from a TOML file, then applies .env and
// environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads a .env file when one exists. Variables already present in
// the environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file values with environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SAAVNRELAY_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SAAVNRELAY_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("SAAVNRELAY_UPSTREAM_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("SAAVNRELAY_TEMP_DIR"); v != "" {
		c.Downloads.TempDir = v
	}
	if v := os.Getenv("SAAVNRELAY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		c.Reporting.SentryDSN = v
	}
	if v := os.Getenv("NGROK_AUTHTOKEN"); v != "" && c.Ngrok.AuthToken == "" {
		c.Ngrok.AuthToken = v
	}
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# saavnrelay configuration
# Search and download relay for the JioSaavn metadata API.
# Environment variables (SAAVNRELAY_*, SENTRY_DSN, NGROK_AUTHTOKEN) override these values.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base url cannot be empty")
	}
	if c.Upstream.RequestTimeout < 1 {
		return fmt.Errorf("upstream request timeout must be at least 1 second")
	}
	if c.Upstream.DownloadTimeout < 1 {
		return fmt.Errorf("upstream download timeout must be at least 1 second")
	}

	if c.Downloads.TempDir == "" {
		return fmt.Errorf("downloads temp dir cannot be empty")
	}
	switch c.Downloads.DefaultQuality {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("invalid default quality: %s (must be low, medium, or high)", c.Downloads.DefaultQuality)
	}
	if c.Downloads.MaxSizeMB < 0 {
		return fmt.Errorf("downloads max size cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true, "nested": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text, json, or nested)", c.Logging.Format)
	}

	if c.Reporting.TracesSampleRate < 0 || c.Reporting.TracesSampleRate > 1 {
		return fmt.Errorf("traces sample rate must be between 0 and 1")
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// RequestTimeout is the per-call budget for upstream JSON requests
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Upstream.RequestTimeout) * time.Second
}

// DownloadTimeout is the per-call budget for streamed asset downloads
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Upstream.DownloadTimeout) * time.Second
}
