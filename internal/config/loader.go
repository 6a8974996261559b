package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "canvas-state.yaml"

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays non-empty environment variables onto cfg.
func loadEnv(cfg *Config) error {
	setString(&cfg.Store.Path, "CANVAS_STATE_DB")
	setString(&cfg.Document.Key, "CANVAS_STATE_KEY")
	setString(&cfg.Logging.Level, "CANVAS_STATE_LOG_LEVEL")
	setString(&cfg.Logging.Format, "CANVAS_STATE_LOG_FORMAT")
	if err := setInt(&cfg.Store.Keep, "CANVAS_STATE_KEEP"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Autosave.Debounce, "CANVAS_STATE_AUTOSAVE_DEBOUNCE"); err != nil {
		return err
	}
	return setDuration(&cfg.Autosave.InitialDelay, "CANVAS_STATE_AUTOSAVE_INITIAL_DELAY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if c.Store.Keep < 1 {
		return errors.New("store.keep must be at least 1")
	}
	if c.Document.Key == "" {
		return errors.New("document.key is required")
	}
	if c.Autosave.Debounce < 0 || c.Autosave.InitialDelay < 0 {
		return errors.New("autosave durations must not be negative")
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("unknown log format %q (use json or console)", c.Logging.Format)
	}
	return nil
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".canvas-state", "canvas.db")
}
