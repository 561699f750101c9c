package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/saravenpi/slash/internal/storage"
	"github.com/saravenpi/slash/internal/testutil"
)

// setupEnv points config and data at a temp dir and returns the data dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	dataDir := filepath.Join(home, "data")
	t.Setenv("HOME", home)
	t.Setenv("SLASH_DATA_DIR", dataDir)
	t.Setenv("SLASH_BACKEND_URL", "")
	t.Setenv("SLASH_LOG_FILE", "")
	backupOutput, backupOpen, verbose, configPath, backendURL = "", false, false, "", ""
	return dataDir
}

func seedSession(t *testing.T, dataDir, token, role string) {
	t.Helper()
	kv, err := storage.Open(filepath.Join(dataDir, "session.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer kv.Close()
	if err := kv.SetMany(context.Background(), map[string]string{"token": token, "role": role}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "Slash v"+version+" (commit: "+commit+")\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := run(t, "--version"); err == nil {
		t.Fatalf("version is only available as a subcommand")
	}
}

func TestWhoami(t *testing.T) {
	dataDir := setupEnv(t)
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555-0100", "pw")

	out, err := run(t, "whoami", "--backend", be.URL())
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "Not signed in") {
		t.Fatalf("unexpected output %q", out)
	}

	seedSession(t, dataDir, be.Token(t, "alice"), "user")
	out, err = run(t, "whoami", "--backend", be.URL())
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "Alice (@alice)") || !strings.Contains(out, "role:  user") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestWhoami_UnresolvedSessionIsCleared(t *testing.T) {
	dataDir := setupEnv(t)
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555-0100", "pw")
	be.TokenTTL = -time.Minute
	seedSession(t, dataDir, be.Token(t, "alice"), "user")

	out, err := run(t, "whoami", "--backend", be.URL())
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "Session expired") {
		t.Fatalf("unexpected output %q", out)
	}

	kv, err := storage.Open(filepath.Join(dataDir, "session.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer kv.Close()
	if _, ok, _ := kv.Get(context.Background(), "token"); ok {
		t.Fatalf("stale token should be cleared")
	}
	if n := len(be.CallsTo("GET /me")); n != 0 {
		t.Fatalf("expired token must not be sent, got %d calls", n)
	}
}

func TestLogout_ClearsStoredSession(t *testing.T) {
	dataDir := setupEnv(t)
	be := testutil.NewBackend(t)
	seedSession(t, dataDir, "opaque-token", "user")

	out, err := run(t, "logout", "--backend", be.URL())
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !strings.Contains(out, "Signed out") {
		t.Fatalf("unexpected output %q", out)
	}

	kv, err := storage.Open(filepath.Join(dataDir, "session.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer kv.Close()
	if _, ok, _ := kv.Get(context.Background(), "token"); ok {
		t.Fatalf("token should be cleared")
	}
	if n := len(be.Calls()); n != 0 {
		t.Fatalf("logout should not call the service, got %d", n)
	}
}

func TestBackup_DownloadsForAdmin(t *testing.T) {
	dataDir := setupEnv(t)
	be := testutil.NewBackend(t)
	seedSession(t, dataDir, be.Token(t, testutil.AdminUsername), "admin")
	dest := filepath.Join(t.TempDir(), "export.pdf")

	out, err := run(t, "backup", "--backend", be.URL(), "-o", dest)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if !strings.Contains(out, "Saved "+dest) {
		t.Fatalf("unexpected output %q", out)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != testutil.BackupBody {
		t.Fatalf("export content = %q", data)
	}
}

func TestBackup_RequiresAdmin(t *testing.T) {
	dataDir := setupEnv(t)
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "1", "pw")
	seedSession(t, dataDir, be.Token(t, "alice"), "user")

	if _, err := run(t, "backup", "--backend", be.URL(), "-o", filepath.Join(t.TempDir(), "x.pdf")); err == nil {
		t.Fatalf("expected an error for a non-admin session")
	}
	if n := len(be.Calls()); n != 0 {
		t.Fatalf("no request expected, got %d", n)
	}
}

func TestConfigInit_WritesFile(t *testing.T) {
	setupEnv(t)
	configForce = false
	path := filepath.Join(t.TempDir(), "config.yml")

	out, err := run(t, "config", "init", "--config", path, "--backend", "https://chat.example.com/")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Fatalf("unexpected output %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "url: https://chat.example.com") {
		t.Fatalf("backend not persisted:\n%s", data)
	}

	if _, err := run(t, "config", "init", "--config", path); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}

	backendURL = ""
	out, err = run(t, "config", "--config", path)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "https://chat.example.com") {
		t.Fatalf("effective config should come from the file: %q", out)
	}
}
