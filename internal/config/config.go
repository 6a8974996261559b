// Package config loads canvas-state configuration.
package config

import "time"

// Config is the full application configuration.
type Config struct {
	Store    Store    `yaml:"store"`
	Document Document `yaml:"document"`
	Autosave Autosave `yaml:"autosave"`
	Logging  Logging  `yaml:"logging"`
}

// Store configures the SQLite blob store.
type Store struct {
	Path string `yaml:"path"`
	Keep int    `yaml:"keep"`
}

// Document configures the key the snapshot is saved under.
type Document struct {
	Key string `yaml:"key"`
}

// Autosave configures save triggering.
type Autosave struct {
	Debounce     time.Duration `yaml:"debounce"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// Logging configures the zerolog logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns a Config with every field set to its default.
func Defaults() Config {
	return Config{
		Store:    Store{Path: defaultDBPath(), Keep: 20},
		Document: Document{Key: "canvas_state"},
		Autosave: Autosave{
			Debounce:     100 * time.Millisecond,
			InitialDelay: 3 * time.Second,
		},
		Logging: Logging{Level: "info", Format: "console"},
	}
}
