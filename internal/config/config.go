// Package config loads the TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/normalize"
)

const appName = "tunedeck"

// Config is the application configuration.
type Config struct {
	Library  LibraryConfig  `koanf:"library"`
	Database DatabaseConfig `koanf:"database"`
	Player   PlayerConfig   `koanf:"player"`
	Log      LogConfig      `koanf:"log"`
}

// LibraryConfig holds ingestion settings.
type LibraryConfig struct {
	Sources              []string `koanf:"sources"`                // folders to scan and watch
	BatchSize            int      `koanf:"batch_size"`             // files extracted per commit (default: 20)
	Workers              int      `koanf:"workers"`                // concurrent extractions per batch (default: batch size)
	CaseInsensitivePaths *bool    `koanf:"case_insensitive_paths"` // default: platform
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path string `koanf:"path"` // empty means the XDG data directory
}

// PlayerConfig holds the playback modes applied at startup.
type PlayerConfig struct {
	PlaybackRate float64 `koanf:"playback_rate"` // 0.5-4.0, default 1.0
	Repeat       string  `koanf:"repeat"`        // "none", "one" or "all"
	Shuffle      bool    `koanf:"shuffle"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `koanf:"level"`  // DEBUG, INFO, WARN, ERROR
	Format     string `koanf:"format"` // "text" or "json"
	File       string `koanf:"file"`   // rotating log file, stderr when empty
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// Load reads the config files in order of priority (last wins).
func Load() (*Config, error) {
	return LoadFrom(configPaths()...)
}

// LoadFrom reads the given files, skipping those that do not exist, and applies defaults.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	for i, src := range cfg.Library.Sources {
		cfg.Library.Sources[i] = expandPath(src)
	}
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Player.PlaybackRate == 0 {
		c.Player.PlaybackRate = 1.0
	}
	if c.Player.PlaybackRate < domain.MinPlaybackRate || c.Player.PlaybackRate > domain.MaxPlaybackRate {
		return fmt.Errorf("player.playback_rate: %w: %v", domain.ErrInvalidRate, c.Player.PlaybackRate)
	}
	if _, err := domain.ParseRepeatMode(c.Player.Repeat); err != nil {
		return fmt.Errorf("player.repeat: %w", err)
	}
	if c.Library.BatchSize < 0 || c.Library.Workers < 0 {
		return domain.NewValidationError("library", c.Library, "batch_size and workers cannot be negative")
	}
	return nil
}

// RepeatMode returns the configured repeat mode.
func (c *Config) RepeatMode() domain.RepeatMode {
	mode, _ := domain.ParseRepeatMode(c.Player.Repeat)
	return mode
}

// PathCompare returns the path comparison mode, defaulting to the platform's.
func (c *Config) PathCompare() normalize.PathCompare {
	if c.Library.CaseInsensitivePaths == nil {
		return normalize.PlatformPathCompare()
	}
	if *c.Library.CaseInsensitivePaths {
		return normalize.CaseInsensitive
	}
	return normalize.CaseSensitive
}

// Logger returns the logger configuration; TUNEDECK_LOG_LEVEL applies when no level is set.
func (c *Config) Logger() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(c.Log.Level, cfg.Level)
	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}
	cfg.File = c.Log.File
	cfg.MaxSizeMB = c.Log.MaxSizeMB
	cfg.MaxBackups = c.Log.MaxBackups
	cfg.MaxAgeDays = c.Log.MaxAgeDays
	return cfg
}

func configPaths() []string {
	paths := []string{}

	// 1. $XDG_CONFIG_HOME/tunedeck/config.toml
	paths = append(paths, filepath.Join(xdg.ConfigHome, appName, "config.toml"))

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
