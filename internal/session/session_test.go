package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saravenpi/slash/internal/api"
	"github.com/saravenpi/slash/internal/models"
	"github.com/saravenpi/slash/internal/storage"
	"github.com/saravenpi/slash/internal/testutil"
)

func newTestStore(t *testing.T, be *testutil.Backend) (*Store, *storage.Store) {
	t.Helper()
	kv, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	client := api.NewClient(be.URL())
	s := New(client, kv)
	client.SetTokenSource(s)
	return s, kv
}

func TestLogin_PersistsTokenAndRole(t *testing.T) {
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555", "pw")
	s, kv := newTestStore(t, be)
	ctx := context.Background()

	sess, err := s.Login(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token == "" || sess.Role != models.RoleUser {
		t.Fatalf("unexpected session: %+v", sess)
	}
	tok, ok, err := kv.Get(ctx, keyToken)
	if err != nil || !ok || tok != sess.Token {
		t.Fatalf("persisted token %q ok=%v err=%v, want %q", tok, ok, err, sess.Token)
	}
	role, _, _ := kv.Get(ctx, keyRole)
	if role != "user" {
		t.Fatalf("persisted role = %q", role)
	}
}

func TestLogin_InvalidLeavesStorageUnchanged(t *testing.T) {
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555", "pw")
	s, kv := newTestStore(t, be)
	ctx := context.Background()

	if err := kv.SetMany(ctx, map[string]string{keyToken: "previous", keyRole: "user"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := s.Login(ctx, "alice", "nope")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Message != "Invalid credentials" {
		t.Fatalf("message = %q", authErr.Message)
	}
	tok, _, _ := kv.Get(ctx, keyToken)
	if tok != "previous" {
		t.Fatalf("storage changed on failed login: %q", tok)
	}
}

func TestSignup_DuplicateSurfacesServiceText(t *testing.T) {
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555", "pw")
	s, _ := newTestStore(t, be)

	_, err := s.Signup(context.Background(), "Other Alice", "alice", "556", "pw")
	if err == nil || err.Error() != "Username already exists" {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	sess, err := s.Signup(context.Background(), "Eve", "eve", "557", "pw")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if sess.Token == "" {
		t.Fatalf("signup should establish a session")
	}
}

func TestAuthError_FallbackOnNetworkFailure(t *testing.T) {
	kv, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	s := New(api.NewClient("http://127.0.0.1:1"), kv)

	_, err = s.Login(context.Background(), "a", "b")
	if err == nil || err.Error() != "Login failed" {
		t.Fatalf("expected fallback message, got %v", err)
	}
}

func TestResolveProfile(t *testing.T) {
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555", "pw")
	s, _ := newTestStore(t, be)
	ctx := context.Background()

	if u := s.ResolveProfile(ctx); u != nil {
		t.Fatalf("no token should resolve to nil")
	}

	if _, err := s.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	u := s.ResolveProfile(ctx)
	if u == nil || u.Username != "alice" {
		t.Fatalf("ResolveProfile = %+v", u)
	}
	if s.Current().Profile == nil {
		t.Fatalf("profile should be stored on the session")
	}
}

func TestResolveProfile_ExpiredTokenSkipsNetwork(t *testing.T) {
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555", "pw")
	be.TokenTTL = -time.Minute
	s, kv := newTestStore(t, be)
	ctx := context.Background()

	if err := kv.SetMany(ctx, map[string]string{keyToken: be.Token(t, "alice"), keyRole: "user"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if u := s.ResolveProfile(ctx); u != nil {
		t.Fatalf("expired token should not resolve")
	}
	if n := len(be.CallsTo("GET /me")); n != 0 {
		t.Fatalf("expected no /me call, got %d", n)
	}
}

func TestResolveProfile_OpaqueTokenRejected(t *testing.T) {
	be := testutil.NewBackend(t)
	s, kv := newTestStore(t, be)
	ctx := context.Background()

	if err := kv.SetMany(ctx, map[string]string{keyToken: "opaque-token", keyRole: "user"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if u := s.ResolveProfile(ctx); u != nil {
		t.Fatalf("rejected token should resolve to nil")
	}
	if n := len(be.CallsTo("GET /me")); n != 1 {
		t.Fatalf("opaque token should still be checked remotely, got %d calls", n)
	}
}

func TestLogout_ClearsEverythingAndNotifies(t *testing.T) {
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555", "pw")
	s, kv := newTestStore(t, be)
	ctx := context.Background()

	var seen []Session
	unsubscribe := s.Subscribe(func(sess Session) { seen = append(seen, sess) })
	defer unsubscribe()

	if _, err := s.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	be.ResetCalls()
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if s.Token() != "" || s.Current().Authenticated() {
		t.Fatalf("session should be empty after logout")
	}
	if _, ok, _ := kv.Get(ctx, keyToken); ok {
		t.Fatalf("token should be removed from storage")
	}
	if u := s.ResolveProfile(ctx); u != nil {
		t.Fatalf("profile should not resolve after logout")
	}
	if n := len(be.Calls()); n != 0 {
		t.Fatalf("logout and the following resolve must not hit the network, got %d calls", n)
	}

	if len(seen) != 2 || !seen[0].Authenticated() || seen[1].Authenticated() {
		t.Fatalf("unexpected notifications: %+v", seen)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555", "pw")
	s, kv := newTestStore(t, be)
	ctx := context.Background()

	sess, err := s.Login(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	fresh := New(api.NewClient(be.URL()), kv)
	restored, err := fresh.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Token != sess.Token || restored.Role != models.RoleUser || restored.Profile != nil {
		t.Fatalf("restored = %+v", restored)
	}
}

func TestNotify_LastDeliveryMatchesFinalState(t *testing.T) {
	be := testutil.NewBackend(t)
	be.AddUser("Alice", "alice", "555", "pw")
	s, _ := newTestStore(t, be)
	ctx := context.Background()

	var mu sync.Mutex
	var last Session
	unsubscribe := s.Subscribe(func(sess Session) {
		mu.Lock()
		last = sess
		mu.Unlock()
	})
	defer unsubscribe()

	for i := 0; i < 20; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Login(ctx, "alice", "pw")
		}()
		go func() {
			defer wg.Done()
			_ = s.Logout(ctx)
		}()
		wg.Wait()

		mu.Lock()
		got := last.Token
		mu.Unlock()
		if want := s.Token(); got != want {
			t.Fatalf("iteration %d: last delivered token %q, store holds %q", i, got, want)
		}
	}
}
