package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultBackendURL = "http://localhost:8000"

// Config holds all client configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig points the client at the messaging service.
type BackendConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"` // holds session.db and slash.log
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty means <data_dir>/slash.log
}

// GetConfigDir returns ~/.slash.
func GetConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".slash")
}

// DefaultPath returns the path of the optional YAML config file.
func DefaultPath() string {
	return filepath.Join(GetConfigDir(), "config.yml")
}

func defaults() *Config {
	return &Config{
		Backend: BackendConfig{URL: DefaultBackendURL},
		Storage: StorageConfig{DataDir: GetConfigDir()},
		Log:     LogConfig{Level: "info"},
	}
}

// Load resolves configuration in order: defaults, the YAML file at path (a
// missing file is fine), then environment variables. A .env file in the
// working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaults()

	if path == "" {
		path = DefaultPath()
	}
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}

	cfg.Backend.URL = getEnv("SLASH_BACKEND_URL", cfg.Backend.URL)
	cfg.Storage.DataDir = getEnv("SLASH_DATA_DIR", cfg.Storage.DataDir)
	cfg.Log.Level = getEnv("SLASH_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("SLASH_LOG_FILE", cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks the backend URL and normalizes it without a trailing slash.
func (c *Config) Validate() error {
	raw := strings.TrimSpace(c.Backend.URL)
	if raw == "" {
		return fmt.Errorf("backend url is not set")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid backend url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("backend url %q has no host", raw)
	}
	c.Backend.URL = strings.TrimRight(raw, "/")

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = GetConfigDir()
	}
	return nil
}

// SessionDBPath is where the persisted session lives.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Storage.DataDir, "session.db")
}

// LogPath returns the configured log file, defaulting into the data dir.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Storage.DataDir, "slash.log")
}

// Save writes the config as YAML, creating the parent directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Backend: %s, DataDir: %s, Log: %s}", c.Backend.URL, c.Storage.DataDir, c.Log.Level)
}
