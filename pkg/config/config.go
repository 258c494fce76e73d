package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration. Values come from
// ~/.terrarium/config.yaml with environment variables taking precedence.
type Config struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`

	// StoreBackend selects the repository implementation: memory or sqlite.
	StoreBackend string `env:"TERRARIUM_STORE"`
	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `env:"TERRARIUM_DB"`
	// ModesPath overrides the mode manifest location.
	ModesPath string `env:"TERRARIUM_MODES"`
	// TurnLogDir is where per-turn evidence records are written.
	TurnLogDir string `env:"TERRARIUM_TURNLOG"`

	ConfigDir string `env:"-"`
}

// FileConfig represents the structure of ~/.terrarium/config.yaml
type FileConfig struct {
	APIKeys APIKeysConfig `yaml:"api_keys"`
	Store   StoreConfig   `yaml:"store"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
}

// StoreConfig holds storage configuration from file.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Load reads configuration from the config file and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey: fileConfig.APIKeys.Anthropic,
		OpenAIAPIKey:    fileConfig.APIKeys.OpenAI,
		GoogleAPIKey:    fileConfig.APIKeys.Google,
		StoreBackend:    fileConfig.Store.Backend,
		SQLitePath:      fileConfig.Store.SQLitePath,
		ConfigDir:       configDir,
	}

	// env.Parse only touches fields whose variable is set, so file values
	// survive unless overridden.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "memory"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(configDir, "terrarium.db")
	}
	if cfg.TurnLogDir == "" {
		cfg.TurnLogDir = filepath.Join(configDir, "turns")
	}

	return cfg, nil
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, cfg)
	return cfg
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".terrarium")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
