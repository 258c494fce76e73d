package config

import (
	"os"
	"path/filepath"
	"testing"
)

// setTestHome points HOME at a temp directory and clears the variables
// Load consults, so tests see only what they set themselves.
func setTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY",
		"TERRARIUM_STORE", "TERRARIUM_DB", "TERRARIUM_MODES", "TERRARIUM_TURNLOG",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return home
}

func writeConfigFile(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".terrarium")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	home := setTestHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("default backend = %q, want memory", cfg.StoreBackend)
	}
	wantDir := filepath.Join(home, ".terrarium")
	if cfg.ConfigDir != wantDir {
		t.Fatalf("config dir = %q, want %q", cfg.ConfigDir, wantDir)
	}
	if cfg.SQLitePath != filepath.Join(wantDir, "terrarium.db") {
		t.Fatalf("unexpected sqlite path %q", cfg.SQLitePath)
	}
	if cfg.TurnLogDir != filepath.Join(wantDir, "turns") {
		t.Fatalf("unexpected turn log dir %q", cfg.TurnLogDir)
	}
}

func TestLoadReadsFile(t *testing.T) {
	home := setTestHome(t)
	writeConfigFile(t, home, `
api_keys:
  anthropic: file-anthropic
  openai: file-openai
store:
  backend: sqlite
  sqlite_path: /data/eco.db
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "file-anthropic" {
		t.Fatalf("anthropic key = %q", cfg.AnthropicAPIKey)
	}
	if cfg.StoreBackend != "sqlite" || cfg.SQLitePath != "/data/eco.db" {
		t.Fatalf("store config not read: %q %q", cfg.StoreBackend, cfg.SQLitePath)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	home := setTestHome(t)
	writeConfigFile(t, home, `
api_keys:
  anthropic: file-anthropic
store:
  backend: sqlite
`)
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic")
	t.Setenv("TERRARIUM_STORE", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "env-anthropic" {
		t.Fatalf("env did not override file: %q", cfg.AnthropicAPIKey)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("env did not override backend: %q", cfg.StoreBackend)
	}
}

func TestLoadIgnoresMalformedFile(t *testing.T) {
	home := setTestHome(t)
	writeConfigFile(t, home, "not: [valid: yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("expected defaults with malformed file, got backend %q", cfg.StoreBackend)
	}
}
