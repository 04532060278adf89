// Package config loads caldora's settings from a YAML or TOML file.
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

	"github.com/BurntSushi/toml"
	"github.com/cyp0633/caldora/engine/recurrence"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA zone floating times are read in and agendas are
	// printed in (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" toml:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" toml:"week_start"`

	// HorizonDays is how far ahead recurrences are expanded by default.
	HorizonDays int `yaml:"horizon_days" toml:"horizon_days"`

	// MaxIterations caps rule values pulled per recurring record.
	MaxIterations int `yaml:"max_iterations" toml:"max_iterations"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// Sources lists .ics files loaded when none are given on the command line.
	Sources []string `yaml:"sources" toml:"sources"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:      "UTC",
		WeekStart:     "monday",
		HorizonDays:   7,
		MaxIterations: recurrence.DefaultEngineConfig.MaxIterations,
		LogLevel:      "info",
		Sources:       []string{},
	}
}

// Normalize fills in missing or unknown values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		c.WeekStart = def.WeekStart
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = def.LogLevel
	}
	if c.Sources == nil {
		c.Sources = []string{}
	}
}

// Load reads the configuration at path. Files ending in .toml are decoded as
// TOML, everything else as YAML. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	cfg.Normalize()
	return &cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Engine returns the recurrence settings.
func (c *Config) Engine() recurrence.EngineConfig {
	return recurrence.EngineConfig{MaxIterations: c.MaxIterations}.Normalize()
}

// Horizon returns from plus HorizonDays.
func (c *Config) Horizon(from time.Time) time.Time {
	return from.AddDate(0, 0, c.HorizonDays)
}

// FirstWeekday returns the configured start of the week.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// WeekOf returns midnight of the first day of the week containing t.
func (c *Config) WeekOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	back := (int(day.Weekday()) - int(c.FirstWeekday()) + 7) % 7
	return day.AddDate(0, 0, -back)
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
