package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"ab":         "<redacted>",
		"secret-tok": "s*****k",
	}
	for in, want := range cases {
		if got := Mask(in); got != want {
			t.Fatalf("Mask(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInitWriter_RespectsLevel(t *testing.T) {
	t.Cleanup(func() { Log = nil })
	var buf bytes.Buffer
	InitWriter("warn", &buf)
	Info("hidden")
	Warn("shown", "key", "value")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Fatalf("warn record missing: %s", out)
	}
}

func TestInit_WritesFile(t *testing.T) {
	t.Cleanup(func() {
		Close()
		Log = nil
	})
	path := filepath.Join(t.TempDir(), "logs", "slash.log")
	if err := Init("debug", path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Debug("session_restored", "role", "user")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "session_restored") {
		t.Fatalf("log file missing record: %s", data)
	}
}

func TestHelpersWithoutInit(t *testing.T) {
	Log = nil
	Info("no-op")
	Error("no-op")
}
