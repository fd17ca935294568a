// Package config provides layered configuration for the tracker service.
//
// Configuration is loaded in order:
//  1. Built-in defaults
//  2. YAML config file (explicit path or ./config.yaml)
//  3. Environment variable overrides (TRACKER_ prefix)
//  4. Validation
//
// The JWT signing secret has no default and must be supplied; Load fails
// without it so the process never starts serving with an unsigned token
// path.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for the tracker service.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Auth   AuthConfig   `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`          // default ":8080"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default 15s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default 15s
}

// DBConfig holds sqlite settings.
type DBConfig struct {
	Path string `yaml:"path"` // default "data/tracker.db"
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"` // required
	TokenTTL  time.Duration `yaml:"token_ttl"`  // default 1h
}

// ErrMissingSecret is returned when no JWT secret is configured.
var ErrMissingSecret = errors.New("auth.jwt_secret is required (set TRACKER_JWT_SECRET or the config file)")

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		DB: DBConfig{
			Path: "data/tracker.db",
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides, then validates it.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// Validate checks invariants that must hold before the server starts.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingSecret
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.DB.Path == "" {
		return errors.New("db.path must not be empty")
	}
	return nil
}

// discoverConfigFile resolves the config file path: the explicit argument
// wins, then TRACKER_CONFIG, then ./config.yaml if present.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if path := os.Getenv("TRACKER_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRACKER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TRACKER_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("TRACKER_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("TRACKER_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}
}
