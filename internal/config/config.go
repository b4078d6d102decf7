// Package config provides configuration loading for postboard.
//
// Values come from hardcoded defaults, then an optional YAML file, then
// POSTBOARD_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the complete postboard configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Sync      SyncConfig      `koanf:"sync"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider  string        `koanf:"provider"`
	APIKey    Secret        `koanf:"api_key"`
	Model     string        `koanf:"model"`
	Endpoint  string        `koanf:"endpoint"`
	Timeout   time.Duration `koanf:"timeout"`
	CacheSize int           `koanf:"cache_size"`
	RateLimit float64       `koanf:"rate_limit"` // requests per second, 0 = unlimited
}

// SyncConfig guards the bulk ingestion endpoint.
type SyncConfig struct {
	// Token is the bearer token ingestion clients present. Empty disables the endpoint.
	Token Secret `koanf:"token"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults
const (
	DefaultHost              = "localhost"
	DefaultPort              = 8080
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultEmbeddingProvider = "none"
	DefaultEmbeddingTimeout  = 10 * time.Second
	DefaultCacheSize         = 10000
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
)

var validProviders = map[string]bool{
	"openai": true,
	"jina":   true,
	"ollama": true,
	"local":  true,
	"none":   true,
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero values.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath()
	}
	cfg.Database.Path = expandHome(cfg.Database.Path)
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultEmbeddingProvider
	}
	cfg.Embedding.Provider = strings.ToLower(cfg.Embedding.Provider)
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = DefaultEmbeddingTimeout
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = DefaultCacheSize
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.http_port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout cannot be negative"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if !validProviders[c.Embedding.Provider] {
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of openai, jina, ollama, local, none", c.Embedding.Provider))
	}
	if c.Embedding.Timeout < 0 {
		errs = append(errs, errors.New("embedding.timeout cannot be negative"))
	}
	if c.Embedding.CacheSize < 0 {
		errs = append(errs, errors.New("embedding.cache_size cannot be negative"))
	}
	if c.Embedding.RateLimit < 0 {
		errs = append(errs, errors.New("embedding.rate_limit cannot be negative"))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// DefaultDatabasePath returns ~/.postboard/postboard.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "postboard.db"
	}
	return filepath.Join(home, ".postboard", "postboard.db")
}

// DefaultConfigPath returns ~/.postboard/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".postboard", "config.yaml")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
