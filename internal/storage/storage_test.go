package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStore_SetManyGetClear(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}

	if err := s.SetMany(ctx, map[string]string{"token": "t1", "role": "user"}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	if err := s.SetMany(ctx, map[string]string{"token": "t2"}); err != nil {
		t.Fatalf("SetMany overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "token")
	if err != nil || !ok || v != "t2" {
		t.Fatalf("Get token = %q ok=%v err=%v", v, ok, err)
	}
	if role, ok, _ := s.Get(ctx, "role"); !ok || role != "user" {
		t.Fatalf("overwriting token should keep role, got %q ok=%v", role, ok)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "token"); ok {
		t.Fatalf("token should be cleared")
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "session.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SetMany(ctx, map[string]string{"token": "persisted"}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	v, ok, err := s.Get(ctx, "token")
	if err != nil || !ok || v != "persisted" {
		t.Fatalf("Get after reopen = %q ok=%v err=%v", v, ok, err)
	}
}
