package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/saravenpi/slash/internal/models"
)

const (
	AdminUsername = "online911"
	AdminPassword = "onlinE@911"
	jwtSecret     = "test-secret"
)

// Call records one request the fake backend received.
type Call struct {
	Method string
	Path   string
	Query  string
	Body   string
	Auth   string
}

type account struct {
	user     models.User
	password string
}

type storedMessage struct {
	from, to, text string
}

// Backend is an in-memory implementation of the messaging service used by
// package tests. It is safe for concurrent use.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	accounts map[string]*account
	messages []storedMessage
	blocks   map[[2]string]bool
	calls    []Call
	failures map[string]int
	nextID   int

	// ThreadHook, when set, runs before a thread response is written. Tests
	// use it to hold a response back.
	ThreadHook func(withUser string)
	// TokenTTL controls the exp claim of minted tokens. Negative values mint
	// already expired tokens.
	TokenTTL time.Duration
}

// NewBackend starts a fake service seeded with the admin account. It is
// closed through t.Cleanup.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		accounts: make(map[string]*account),
		blocks:   make(map[[2]string]bool),
		failures: make(map[string]int),
		TokenTTL: time.Hour,
	}
	b.addAccount(models.User{Name: "Administrator", Username: AdminUsername, Phone: "911", Role: models.RoleAdmin, IsActive: true}, AdminPassword)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.handleLogin)
	mux.HandleFunc("POST /auth/signup", b.handleSignup)
	mux.HandleFunc("GET /me", b.authed(b.handleMe))
	mux.HandleFunc("GET /users/search", b.authed(b.handleSearch))
	mux.HandleFunc("GET /messages/thread", b.authed(b.handleThread))
	mux.HandleFunc("POST /messages/send", b.authed(b.handleSend))
	mux.HandleFunc("POST /block", b.authed(b.handleBlock))
	mux.HandleFunc("DELETE /block", b.authed(b.handleUnblock))
	mux.HandleFunc("GET /admin/users", b.authed(b.adminOnly(b.handleAdminUsers)))
	mux.HandleFunc("POST /admin/suspend", b.authed(b.adminOnly(b.handleSetActive(false))))
	mux.HandleFunc("POST /admin/activate", b.authed(b.adminOnly(b.handleSetActive(true))))
	mux.HandleFunc("GET /admin/backup.pdf", b.authed(b.adminOnly(b.handleBackup)))

	b.Server = httptest.NewServer(b.record(mux))
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) URL() string { return b.Server.URL }

// AddUser creates an active regular account and returns it.
func (b *Backend) AddUser(name, username, phone, password string) models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addAccount(models.User{Name: name, Username: username, Phone: phone, Role: models.RoleUser, IsActive: true}, password)
}

func (b *Backend) addAccount(u models.User, password string) models.User {
	b.nextID++
	u.ID = fmt.Sprintf("u%03d", b.nextID)
	b.accounts[u.Username] = &account{user: u, password: password}
	return u
}

// Token mints a valid token for username without going through login.
func (b *Backend) Token(t *testing.T, username string) string {
	t.Helper()
	return GenerateJWTHS256(t, jwtSecret, username, b.TokenTTL)
}

// SetBlocked records that blocker has blocked blocked.
func (b *Backend) SetBlocked(blocker, blocked string, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks[[2]string{blocker, blocked}] = on
}

// AddMessage appends a message directly to the store.
func (b *Backend) AddMessage(from, to, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, storedMessage{from: from, to: to, text: text})
}

// FailNext makes the next request matching "METHOD /path" answer status.
func (b *Backend) FailNext(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = status
}

// Calls returns a copy of every recorded request.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallsTo returns the recorded requests for "METHOD /path".
func (b *Backend) CallsTo(route string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method+" "+c.Path == route {
			out = append(out, c)
		}
	}
	return out
}

func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

func (b *Backend) IsActive(username string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[username]
	return ok && acc.user.IsActive
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		b.mu.Lock()
		b.calls = append(b.calls, Call{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Auth:   r.Header.Get("Authorization"),
		})
		route := r.Method + " " + r.URL.Path
		status, fail := b.failures[route]
		if fail {
			delete(b.failures, route)
		}
		b.mu.Unlock()

		if fail {
			writeDetail(w, status, "forced failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authed(next func(http.ResponseWriter, *http.Request, *account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		username, err := ParseJWTHS256(tokenStr, jwtSecret)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		b.mu.Lock()
		acc, found := b.accounts[username]
		b.mu.Unlock()
		if !found {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, r, acc)
	}
}

func (b *Backend) adminOnly(next func(http.ResponseWriter, *http.Request, *account)) func(http.ResponseWriter, *http.Request, *account) {
	return func(w http.ResponseWriter, r *http.Request, acc *account) {
		if acc.user.Role != models.RoleAdmin {
			writeDetail(w, http.StatusForbidden, "Admin only")
			return
		}
		next(w, r, acc)
	}
}

func (b *Backend) issue(t string, acc *account) models.AuthResult {
	return models.AuthResult{AccessToken: t, Role: acc.user.Role}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	b.mu.Lock()
	acc, ok := b.accounts[req.Username]
	b.mu.Unlock()
	if !ok || acc.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !acc.user.IsActive {
		writeDetail(w, http.StatusForbidden, "Account suspended")
		return
	}
	tok, err := signToken(req.Username, b.TokenTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b.issue(tok, acc))
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	b.mu.Lock()
	if _, exists := b.accounts[req.Username]; exists {
		b.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Username already exists")
		return
	}
	b.addAccount(models.User{Name: req.Name, Username: req.Username, Phone: req.Phone, Role: models.RoleUser, IsActive: true}, req.Password)
	acc := b.accounts[req.Username]
	b.mu.Unlock()

	tok, err := signToken(req.Username, b.TokenTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b.issue(tok, acc))
}

func (b *Backend) handleMe(w http.ResponseWriter, _ *http.Request, acc *account) {
	writeJSON(w, http.StatusOK, acc.user)
}

func (b *Backend) handleSearch(w http.ResponseWriter, r *http.Request, acc *account) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	b.mu.Lock()
	out := []models.User{}
	for _, other := range b.accounts {
		if other.user.Username == acc.user.Username {
			continue
		}
		u := other.user
		if strings.Contains(strings.ToLower(u.Name), q) ||
			strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(u.Phone, q) {
			out = append(out, u)
		}
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleThread(w http.ResponseWriter, r *http.Request, acc *account) {
	with := r.URL.Query().Get("with_user")
	if b.ThreadHook != nil {
		b.ThreadHook(with)
	}
	me := acc.user.Username

	b.mu.Lock()
	other, ok := b.accounts[with]
	if !ok {
		b.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	thread := models.Thread{
		Messages:    []models.Message{},
		YouBlocked:  b.blocks[[2]string{me, with}],
		TheyBlocked: b.blocks[[2]string{with, me}],
	}
	otherUser := other.user
	thread.Other = &otherUser
	for _, m := range b.messages {
		if (m.from == me && m.to == with) || (m.from == with && m.to == me) {
			thread.Messages = append(thread.Messages, models.Message{Sender: m.from, Text: m.text, MsgType: models.TextMessage})
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, thread)
}

func (b *Backend) handleSend(w http.ResponseWriter, r *http.Request, acc *account) {
	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	me := acc.user.Username
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[req.Recipient]; !ok {
		writeDetail(w, http.StatusNotFound, "Recipient not found")
		return
	}
	if b.blocks[[2]string{me, req.Recipient}] || b.blocks[[2]string{req.Recipient, me}] {
		writeDetail(w, http.StatusForbidden, "Messaging is blocked")
		return
	}
	b.messages = append(b.messages, storedMessage{from: me, to: req.Recipient, text: req.Text})
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (b *Backend) handleBlock(w http.ResponseWriter, r *http.Request, acc *account) {
	b.SetBlocked(acc.user.Username, r.URL.Query().Get("target"), true)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleUnblock(w http.ResponseWriter, r *http.Request, acc *account) {
	b.SetBlocked(acc.user.Username, r.URL.Query().Get("target"), false)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleAdminUsers(w http.ResponseWriter, _ *http.Request, _ *account) {
	b.mu.Lock()
	out := make([]models.User, 0, len(b.accounts))
	for _, acc := range b.accounts {
		out = append(out, acc.user)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleSetActive(active bool) func(http.ResponseWriter, *http.Request, *account) {
	return func(w http.ResponseWriter, r *http.Request, _ *account) {
		var req models.UsernameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid payload")
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		acc, ok := b.accounts[req.Username]
		if !ok {
			writeDetail(w, http.StatusNotFound, "User not found")
			return
		}
		acc.user.IsActive = active
		writeJSON(w, http.StatusOK, map[string]bool{"is_active": active})
	}
}

// BackupBody is what the fake export endpoint serves.
const BackupBody = "%PDF-1.4\n% slash backup\n"

func (b *Backend) handleBackup(w http.ResponseWriter, _ *http.Request, _ *account) {
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(BackupBody))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func signToken(username string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}
