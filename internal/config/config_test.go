package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Locale != "en" {
		t.Errorf("default locale = %q, want en", cfg.Locale)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("default concurrency = %d, want 4", cfg.Concurrency)
	}
	if cfg.Timeout.Duration != 30*time.Second {
		t.Errorf("default timeout = %s, want 30s", cfg.Timeout.Duration)
	}
	if cfg.Archive {
		t.Error("default archive should be false")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"valid region", func(c *Config) { c.Region = "GB" }, false},
		{"invalid region", func(c *Config) { c.Region = "Britain" }, true},
		{"valid regional locale", func(c *Config) { c.Locale = "pt-BR" }, false},
		{"invalid locale", func(c *Config) { c.Locale = "../x" }, true},
		{"username without password", func(c *Config) { c.Username = "me" }, true},
		{"credentials", func(c *Config) { c.Username, c.Password = "me", "pw" }, false},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"too much concurrency", func(c *Config) { c.Concurrency = 64 }, true},
		{"short timeout", func(c *Config) { c.Timeout.Duration = time.Millisecond }, true},
		{"blank version", func(c *Config) { c.Versions = []string{"uncut", " "} }, true},
		{"blank language", func(c *Config) { c.Languages = []string{""} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromTOML(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	content := `
region = "GB"
languages = ["japanese", "english"]
versions = ["uncut"]
separate_versions = true
archive = true
concurrency = 2
timeout = "1m"
`
	dir := filepath.Join(tmpDir, "funidl")
	os.MkdirAll(dir, 0755)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Region != "GB" {
		t.Errorf("region = %q, want GB", cfg.Region)
	}
	if len(cfg.Languages) != 2 || cfg.Languages[0] != "japanese" {
		t.Errorf("languages = %v, want [japanese english]", cfg.Languages)
	}
	if len(cfg.Versions) != 1 || cfg.Versions[0] != "uncut" {
		t.Errorf("versions = %v, want [uncut]", cfg.Versions)
	}
	if !cfg.SeparateVersions {
		t.Error("separate_versions should be true")
	}
	if !cfg.Archive {
		t.Error("archive should be true")
	}
	if cfg.Concurrency != 2 {
		t.Errorf("concurrency = %d, want 2", cfg.Concurrency)
	}
	if cfg.Timeout.Duration != time.Minute {
		t.Errorf("timeout = %s, want 1m", cfg.Timeout.Duration)
	}
	// untouched keys keep their defaults
	if cfg.Locale != "en" {
		t.Errorf("locale = %q, want en", cfg.Locale)
	}
}

func TestLoadInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	dir := filepath.Join(tmpDir, "funidl")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`timeout = "soon"`), 0644)

	if _, err := Load(); err == nil {
		t.Error("Load() should reject an unparsable timeout")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not error on missing file: %v", err)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("missing file should return defaults, got concurrency = %d", cfg.Concurrency)
	}
}

func TestArchivePath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	cfg := Default()
	path, err := cfg.ResolveArchivePath()
	if err != nil {
		t.Fatalf("ResolveArchivePath() error: %v", err)
	}
	if want := filepath.Join(tmpDir, "funidl", "archive.db"); path != want {
		t.Errorf("got %q, want %q", path, want)
	}

	cfg.ArchivePath = "/tmp/funidl-test/archive.db"
	path, err = cfg.ResolveArchivePath()
	if err != nil {
		t.Fatalf("ResolveArchivePath() error: %v", err)
	}
	if path != "/tmp/funidl-test/archive.db" {
		t.Errorf("got %q, want /tmp/funidl-test/archive.db", path)
	}
}
