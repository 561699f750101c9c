// Package shell decides which top-level screen the client shows.
package shell

import (
	"context"
	"sync"

	"github.com/saravenpi/slash/internal/logger"
	"github.com/saravenpi/slash/internal/models"
	"github.com/saravenpi/slash/internal/session"
)

type State int

const (
	Unauthenticated State = iota
	Loading
	AuthenticatedUser
	AuthenticatedAdmin
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case AuthenticatedUser:
		return "user"
	case AuthenticatedAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Sessions is the part of the session store the shell drives.
type Sessions interface {
	Current() session.Session
	Subscribe(fn func(session.Session)) func()
	Restore(ctx context.Context) (session.Session, error)
	ResolveProfile(ctx context.Context) *models.User
	Logout(ctx context.Context) error
}

// Shell follows the session store and moves between states:
// Unauthenticated -> Loading -> AuthenticatedUser | AuthenticatedAdmin, and
// back to Unauthenticated on logout.
type Shell struct {
	sessions Sessions

	mu          sync.RWMutex
	state       State
	unsubscribe func()
}

func New(sessions Sessions) *Shell {
	sh := &Shell{sessions: sessions}
	sh.apply(sessions.Current())
	sh.unsubscribe = sessions.Subscribe(sh.apply)
	return sh
}

func (sh *Shell) State() State {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.state
}

// apply derives the next state from a session snapshot.
func (sh *Shell) apply(s session.Session) {
	sh.mu.Lock()
	prev := sh.state
	switch {
	case !s.Authenticated():
		sh.state = Unauthenticated
	case s.Profile == nil:
		if sh.state == Unauthenticated {
			sh.state = Loading
		}
	case sh.state == Loading:
		// the role comes from the stored claim, not from the profile
		if s.Role == models.RoleAdmin {
			sh.state = AuthenticatedAdmin
		} else {
			sh.state = AuthenticatedUser
		}
	}
	next := sh.state
	sh.mu.Unlock()

	if prev != next {
		logger.Debug("shell_transition", "from", prev.String(), "to", next.String())
	}
}

// Start restores a persisted session and resolves its profile.
func (sh *Shell) Start(ctx context.Context) (State, error) {
	if _, err := sh.sessions.Restore(ctx); err != nil {
		return sh.State(), err
	}
	return sh.Resolve(ctx), nil
}

// Resolve fetches the profile while in Loading. A failed resolution logs the
// session out, which also clears storage.
func (sh *Shell) Resolve(ctx context.Context) State {
	if sh.State() != Loading {
		return sh.State()
	}
	token := sh.sessions.Current().Token
	if profile := sh.sessions.ResolveProfile(ctx); profile != nil {
		return sh.State()
	}
	if sh.sessions.Current().Token != token {
		// a newer login or logout already moved the state on
		return sh.State()
	}
	logger.Info("profile_unresolved", "action", "logout")
	if err := sh.sessions.Logout(ctx); err != nil {
		logger.Warn("shell_logout_failed", "error", err)
	}
	return sh.State()
}

func (sh *Shell) Logout(ctx context.Context) (State, error) {
	err := sh.sessions.Logout(ctx)
	return sh.State(), err
}

// Close stops following the session store.
func (sh *Shell) Close() {
	if sh.unsubscribe != nil {
		sh.unsubscribe()
		sh.unsubscribe = nil
	}
}
