package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SLASH_BACKEND_URL", "SLASH_DATA_DIR", "SLASH_LOG_LEVEL", "SLASH_LOG_FILE"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != DefaultBackendURL {
		t.Fatalf("backend = %q", cfg.Backend.URL)
	}
	if cfg.Log.Level != "info" || cfg.Storage.DataDir == "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	body := "backend:\n  url: https://chat.example.com/\nstorage:\n  data_dir: " + dir + "\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "https://chat.example.com" {
		t.Fatalf("trailing slash should be trimmed, got %q", cfg.Backend.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level = %q", cfg.Log.Level)
	}
	if cfg.SessionDBPath() != filepath.Join(dir, "session.db") {
		t.Fatalf("session db = %q", cfg.SessionDBPath())
	}

	t.Setenv("SLASH_BACKEND_URL", "http://127.0.0.1:9000")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load with env: %v", err)
	}
	if cfg.Backend.URL != "http://127.0.0.1:9000" {
		t.Fatalf("env should override file, got %q", cfg.Backend.URL)
	}
}

func TestLoad_RejectsBadBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLASH_BACKEND_URL", "ftp://example.com")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for non-http scheme")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	cfg := defaults()
	cfg.Backend.URL = "https://slash.example.org"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Backend.URL != "https://slash.example.org" {
		t.Fatalf("backend = %q", loaded.Backend.URL)
	}
}
