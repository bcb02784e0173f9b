// Package config loads brandlink settings from a YAML file and the
// environment and turns them into client options.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/i2y/brandlink/answer"
)

const (
	configDirName = "brandlink"
	defaultConfig = ".config"
)

var configFiles = []string{
	"config.yaml",
	"config.yml",
}

// Environment variables that override file settings.
const (
	EnvAPIKey  = "BRANDLINK_API_KEY"
	EnvBaseURL = "BRANDLINK_BASE_URL"
	EnvModel   = "BRANDLINK_MODEL"
)

// Config is the on-disk configuration.
type Config struct {
	APIKey    string `yaml:"apiKey"`
	BaseURL   string `yaml:"baseURL"`
	Model     string `yaml:"model"`
	Transport string `yaml:"transport" default:"hosted"`
	TimeoutMs int    `yaml:"timeoutMs" default:"30000"`
	LogLevel  string `yaml:"logLevel" default:"warn"`

	Impressions Impressions `yaml:"impressions"`
}

// Impressions controls impression registration.
type Impressions struct {
	Enabled         bool   `yaml:"enabled" default:"true"`
	Retries         uint64 `yaml:"retries"`
	RetryIntervalMs int    `yaml:"retryIntervalMs" default:"500"`
}

// Default returns a Config holding only default values.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("setting config defaults: %w", err)
	}
	return cfg, nil
}

// Dir returns the directory searched for configuration files,
// $XDG_CONFIG_HOME/brandlink or ~/.config/brandlink.
func Dir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configHome = filepath.Join(home, defaultConfig)
	}
	return filepath.Join(configHome, configDirName), nil
}

// Load reads the first configuration file found in Dir and applies
// environment overrides. A missing file is not an error.
func Load(ctx context.Context) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	for _, name := range configFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg, err := LoadFile(filepath.Join(dir, name))
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads the configuration at path and applies environment
// overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model = v
	}
}

// Timeout returns the request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Logger builds a text logger at the configured level writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// Options converts the configuration into client options.
func (c *Config) Options() []answer.Option {
	var opts []answer.Option
	if c.APIKey != "" {
		opts = append(opts, answer.WithAPIKey(c.APIKey))
	}
	if c.BaseURL != "" {
		opts = append(opts, answer.WithBaseURL(c.BaseURL))
	}
	if c.Model != "" {
		opts = append(opts, answer.WithModel(c.Model))
	}
	if c.Transport != "" {
		opts = append(opts, answer.WithTransportName(c.Transport))
	}
	if c.TimeoutMs > 0 {
		opts = append(opts, answer.WithTimeout(c.Timeout()))
	}
	if c.Impressions.Retries > 0 {
		interval := time.Duration(c.Impressions.RetryIntervalMs) * time.Millisecond
		opts = append(opts, answer.WithImpressionRetry(c.Impressions.Retries, interval))
	}
	return opts
}

// CallOptions returns the per-call options implied by the configuration.
func (c *Config) CallOptions() []answer.CallOption {
	if !c.Impressions.Enabled {
		return []answer.CallOption{answer.WithoutImpression()}
	}
	return nil
}
