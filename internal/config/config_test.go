package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule.SweepSchedule != "* * * * *" {
		t.Errorf("unexpected sweep schedule %q", cfg.Schedule.SweepSchedule)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("unexpected embedding model %q", cfg.Embedding.Model)
	}
	if cfg.Contacts.CacheSize != 4096 {
		t.Errorf("unexpected cache size %d", cfg.Contacts.CacheSize)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[messages]
db_path = "/tmp/chat.db"

[schedule]
log_path = "/tmp/sched.json"
sweep_schedule = "*/5 * * * *"

[embedding]
base_url = "http://localhost:11434/v1"
model = "nomic-embed-text"
api_key = "local"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Messages.DBPath != "/tmp/chat.db" {
		t.Errorf("db_path = %q", cfg.Messages.DBPath)
	}
	if cfg.Schedule.SweepSchedule != "*/5 * * * *" {
		t.Errorf("sweep_schedule = %q", cfg.Schedule.SweepSchedule)
	}
	if cfg.EmbeddingKey() != "local" {
		t.Errorf("EmbeddingKey = %q", cfg.EmbeddingKey())
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestEmbeddingKeyFromEnv(t *testing.T) {
	t.Setenv("CHATBRIDGE_TEST_KEY", "sekrit")
	cfg := &Config{Embedding: EmbeddingConfig{APIKeyEnv: "CHATBRIDGE_TEST_KEY"}}
	if got := cfg.EmbeddingKey(); got != "sekrit" {
		t.Fatalf("EmbeddingKey = %q", got)
	}

	cfg.Embedding.APIKeyEnv = "CHATBRIDGE_UNSET_KEY"
	if got := cfg.EmbeddingKey(); got != "" {
		t.Fatalf("EmbeddingKey = %q, want empty", got)
	}
}
