package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Backend
	ServerURL  string
	StreamPath string
	Timeout    time.Duration

	// Live stream
	ReconnectDelay time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig is the YAML shape. Durations are Go duration strings ("3s").
type fileConfig struct {
	Server         string `yaml:"server"`
	StreamPath     string `yaml:"stream_path"`
	Timeout        string `yaml:"timeout"`
	ReconnectDelay string `yaml:"reconnect_delay"`
	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ServerURL:      "http://localhost:8123",
		StreamPath:     "/ws/all",
		Timeout:        30 * time.Second,
		ReconnectDelay: 3 * time.Second,
		LogFile:        filepath.Join(os.TempDir(), "takeover.log"),
		LogLevel:       slog.LevelInfo,
	}
}

// Load builds the configuration from defaults, the optional config file
// and environment variables, later sources winning.
//
// The file is $TAKEOVER_CONFIG if set (it must exist), otherwise
// takeover/config.yaml under the user config dir if present.
func Load() (Config, error) {
	cfg := Defaults()

	path, explicit := configPath()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return cfg, err
			}
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func configPath() (string, bool) {
	if p := os.Getenv("TAKEOVER_CONFIG"); p != "" {
		return p, true
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, "takeover", "config.yaml"), false
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return c.apply(fc, "config "+path)
}

func (c *Config) mergeEnv() error {
	return c.apply(fileConfig{
		Server:         os.Getenv("TAKEOVER_SERVER"),
		StreamPath:     os.Getenv("TAKEOVER_STREAM_PATH"),
		Timeout:        os.Getenv("TAKEOVER_TIMEOUT"),
		ReconnectDelay: os.Getenv("TAKEOVER_RECONNECT_DELAY"),
		LogFile:        os.Getenv("TAKEOVER_LOG_FILE"),
		LogLevel:       os.Getenv("TAKEOVER_LOG_LEVEL"),
	}, "environment")
}

// apply overlays the non-empty values of fc.
func (c *Config) apply(fc fileConfig, source string) error {
	if fc.Server != "" {
		c.ServerURL = strings.TrimRight(fc.Server, "/")
	}
	if fc.StreamPath != "" {
		c.StreamPath = fc.StreamPath
	}
	if fc.Timeout != "" {
		d, err := parseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("%s: timeout: %w", source, err)
		}
		c.Timeout = d
	}
	if fc.ReconnectDelay != "" {
		d, err := parseDuration(fc.ReconnectDelay)
		if err != nil {
			return fmt.Errorf("%s: reconnect delay: %w", source, err)
		}
		c.ReconnectDelay = d
	}
	if fc.LogFile != "" {
		c.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
