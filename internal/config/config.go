// Package config handles loading and managing chatbridge configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// MessagesConfig holds the location of the Messages database.
type MessagesConfig struct {
	DBPath string `toml:"db_path"` // Messages chat database (read-only)
}

// ContactsConfig holds directory lookup configuration.
type ContactsConfig struct {
	AddressBookPath string `toml:"addressbook_path"` // AddressBook SQLite database
	CacheSize       int    `toml:"cache_size"`       // resolver LRU bound (0 = unbounded)
}

// ScheduleConfig holds scheduled-delivery configuration.
type ScheduleConfig struct {
	LogPath       string `toml:"log_path"`       // persisted delivery log
	SweepSchedule string `toml:"sweep_schedule"` // cron expression for the sweep daemon
}

// EmbeddingConfig holds the optional embedding provider configuration.
// An empty credential is a supported configuration: semantic search simply
// degrades to lexical search.
type EmbeddingConfig struct {
	BaseURL   string  `toml:"base_url"`    // OpenAI-compatible endpoint
	Model     string  `toml:"model"`       // embedding model name
	APIKey    string  `toml:"api_key"`     // credential (prefer api_key_env)
	APIKeyEnv string  `toml:"api_key_env"` // env var to read the credential from
	Window    int     `toml:"window"`      // candidate window for semantic ranking
	RateQPS   float64 `toml:"rate_qps"`    // request pacing for per-candidate embedding
}

// Config represents the chatbridge configuration.
type Config struct {
	Messages  MessagesConfig  `toml:"messages"`
	Contacts  ContactsConfig  `toml:"contacts"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Embedding EmbeddingConfig `toml:"embedding"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default chatbridge home directory.
// Respects the CHATBRIDGE_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("CHATBRIDGE_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatbridge"
	}
	return filepath.Join(home, ".chatbridge")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.chatbridge/config.toml).
// The config file is optional; defaults are used when it is absent.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	home, _ := os.UserHomeDir()
	cfg := &Config{
		HomeDir: homeDir,
		Messages: MessagesConfig{
			DBPath: filepath.Join(home, "Library", "Messages", "chat.db"),
		},
		Contacts: ContactsConfig{
			CacheSize: 4096,
		},
		Schedule: ScheduleConfig{
			LogPath:       filepath.Join(homeDir, "scheduled.json"),
			SweepSchedule: "* * * * *",
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Window:    200,
			RateQPS:   10,
		},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Messages.DBPath = expandPath(cfg.Messages.DBPath)
	cfg.Contacts.AddressBookPath = expandPath(cfg.Contacts.AddressBookPath)
	cfg.Schedule.LogPath = expandPath(cfg.Schedule.LogPath)

	return cfg, nil
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0o755)
}

// EmbeddingKey resolves the embedding credential. Returns "" when no
// credential is configured, which selects lexical-only search.
func (c *Config) EmbeddingKey() string {
	if c.Embedding.APIKey != "" {
		return c.Embedding.APIKey
	}
	if c.Embedding.APIKeyEnv != "" {
		return os.Getenv(c.Embedding.APIKeyEnv)
	}
	return ""
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
