package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/saravenpi/slash/internal/api"
	"github.com/saravenpi/slash/internal/logger"
	"github.com/saravenpi/slash/internal/models"
)

const (
	keyToken = "token"
	keyRole  = "role"
)

// Session is a snapshot of the authentication state.
type Session struct {
	Token   string
	Role    models.Role
	Profile *models.User
}

func (s Session) Authenticated() bool { return s.Token != "" }

// AuthError carries the text shown on the login/signup form.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// Backend is the subset of the API client the store needs.
type Backend interface {
	Login(ctx context.Context, username, password string) (models.AuthResult, error)
	Signup(ctx context.Context, req models.SignupRequest) (models.AuthResult, error)
	Me(ctx context.Context) (models.User, error)
}

// KV is the durable storage the token and role are persisted in.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, pairs map[string]string) error
	Clear(ctx context.Context) error
}

// Store owns the token, role and profile. Components observe it through
// Subscribe instead of reading shared globals.
type Store struct {
	backend Backend
	kv      KV
	now     func() time.Time

	mu      sync.RWMutex
	token   string
	role    models.Role
	profile *models.User

	subMu   sync.Mutex
	subs    map[int]func(Session)
	nextSub int

	// notifyMu orders deliveries so the last snapshot a subscriber sees is
	// the latest state.
	notifyMu sync.Mutex
}

func New(backend Backend, kv KV) *Store {
	return &Store{
		backend: backend,
		kv:      kv,
		now:     time.Now,
		subs:    make(map[int]func(Session)),
	}
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Session {
	var profile *models.User
	if s.profile != nil {
		p := *s.profile
		profile = &p
	}
	return Session{Token: s.token, Role: s.role, Profile: profile}
}

// Subscribe registers fn to run after every change. The returned func
// removes it. fn must not change the store.
func (s *Store) Subscribe(fn func(Session)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	snap := s.Current()
	s.subMu.Lock()
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Restore loads a previously persisted token and role. A missing token is
// not an error.
func (s *Store) Restore(ctx context.Context) (Session, error) {
	token, _, err := s.kv.Get(ctx, keyToken)
	if err != nil {
		return Session{}, fmt.Errorf("failed to restore session: %w", err)
	}
	role, _, err := s.kv.Get(ctx, keyRole)
	if err != nil {
		return Session{}, fmt.Errorf("failed to restore session: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.role = models.Role(role)
	s.profile = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if token != "" {
		logger.Info("session_restored", "role", role, "token", logger.Mask(token))
	}
	s.notify()
	return snap, nil
}

func (s *Store) Login(ctx context.Context, username, password string) (Session, error) {
	res, err := s.backend.Login(ctx, username, password)
	if err != nil {
		logger.Warn("login_failed", "username", username, "error", err)
		return Session{}, &AuthError{Message: api.Message(err, "Login failed"), Err: err}
	}
	return s.establish(ctx, res)
}

// Signup creates the account and logs into it in one step.
func (s *Store) Signup(ctx context.Context, name, username, phone, password string) (Session, error) {
	res, err := s.backend.Signup(ctx, models.SignupRequest{
		Name:     name,
		Username: username,
		Phone:    phone,
		Password: password,
	})
	if err != nil {
		logger.Warn("signup_failed", "username", username, "error", err)
		return Session{}, &AuthError{Message: api.Message(err, "Signup failed"), Err: err}
	}
	return s.establish(ctx, res)
}

func (s *Store) establish(ctx context.Context, res models.AuthResult) (Session, error) {
	if err := s.kv.SetMany(ctx, map[string]string{
		keyToken: res.AccessToken,
		keyRole:  string(res.Role),
	}); err != nil {
		return Session{}, fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	s.token = res.AccessToken
	s.role = res.Role
	s.profile = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logger.Info("session_established", "role", res.Role, "token", logger.Mask(res.AccessToken))
	s.notify()
	return snap, nil
}

// ResolveProfile fetches the profile for the current token. Every failure,
// including an expired token detected locally, resolves to nil.
func (s *Store) ResolveProfile(ctx context.Context) *models.User {
	token := s.Token()
	if token == "" {
		return nil
	}
	if s.expired(token) {
		logger.Info("profile_skipped", "reason", "token expired")
		return nil
	}

	u, err := s.backend.Me(ctx)
	if err != nil {
		logger.Warn("profile_failed", "error", err)
		return nil
	}

	s.mu.Lock()
	if s.token != token {
		// logged out or re-authenticated while the request was in flight
		s.mu.Unlock()
		return nil
	}
	s.profile = &u
	s.mu.Unlock()

	s.notify()
	return &u
}

// expired reads the exp claim of JWT-shaped tokens without verifying the
// signature. Opaque tokens never expire client side.
func (s *Store) expired(token string) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(s.now())
}

// Logout clears memory and storage. In-memory state is cleared even when
// storage fails; the storage error is returned for logging.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.role = ""
	s.profile = nil
	s.mu.Unlock()

	err := s.kv.Clear(ctx)
	if err != nil {
		logger.Error("logout_storage_failed", "error", err)
	} else {
		logger.Info("session_cleared")
	}
	s.notify()
	return err
}
