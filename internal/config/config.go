// Package config handles TOML-based configuration loading and validation.
// TOML is parsed as data only, so a config file cannot run code.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "funidl"

// Config holds all application configuration.
type Config struct {
	Region           string   `toml:"region"`
	Locale           string   `toml:"locale"`
	Languages        []string `toml:"languages"`
	Versions         []string `toml:"versions"`
	SeparateVersions bool     `toml:"separate_versions"`
	Username         string   `toml:"username"`
	Password         string   `toml:"password"`
	Cookies          string   `toml:"cookies"`
	Archive          bool     `toml:"archive"`
	ArchivePath      string   `toml:"archive_path"`
	SubsLanguage     string   `toml:"subs_language"`
	Concurrency      int      `toml:"concurrency"`
	Timeout          Duration `toml:"timeout"`
	Debug            bool     `toml:"debug"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Locale:       "en",
		SubsLanguage: "en",
		Concurrency:  4,
		Timeout:      Duration{30 * time.Second},
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

var (
	regionPattern = regexp.MustCompile(`^[A-Za-z]{2}$`)
	localePattern = regexp.MustCompile(`^[a-z]{2}(?:-[A-Za-z]{2})?$`)
)

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.Region != "" && !regionPattern.MatchString(c.Region) {
		return fmt.Errorf("invalid region %q (want a two-letter country code)", c.Region)
	}
	if !localePattern.MatchString(c.Locale) {
		return fmt.Errorf("invalid locale %q", c.Locale)
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("username and password must be set together")
	}
	if c.Concurrency < 1 || c.Concurrency > 16 {
		return fmt.Errorf("concurrency %d out of range (1-16)", c.Concurrency)
	}
	if c.Timeout.Duration < time.Second {
		return fmt.Errorf("timeout %s too short", c.Timeout.Duration)
	}
	for _, v := range c.Versions {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("empty version in versions")
		}
	}
	for _, l := range c.Languages {
		if strings.TrimSpace(l) == "" {
			return fmt.Errorf("empty language in languages")
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ in path.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}

// ResolveArchivePath returns the configured archive path, or the
// default data-directory location.
func (c *Config) ResolveArchivePath() (string, error) {
	if c.ArchivePath != "" {
		return ExpandPath(c.ArchivePath)
	}
	return ArchivePath()
}

// ArchivePath returns the default path of the archive database.
func ArchivePath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, appName, "archive.db"), nil
}
