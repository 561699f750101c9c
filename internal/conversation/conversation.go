package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/saravenpi/slash/internal/logger"
	"github.com/saravenpi/slash/internal/models"
)

var (
	// ErrNoPeer is returned by actions that need an open conversation.
	ErrNoPeer = errors.New("no conversation open")
	// ErrStaleThread is returned by a load that was overtaken by a newer one.
	// Its response has been dropped and the controller state is unchanged.
	ErrStaleThread = errors.New("thread response superseded")
)

type Backend interface {
	Thread(ctx context.Context, withUser string) (models.Thread, error)
	SendText(ctx context.Context, recipient, text string) error
	Block(ctx context.Context, target string) error
	Unblock(ctx context.Context, target string) error
}

// Controller tracks the active peer and its thread. Every mutation is
// followed by a full reload; the thread is never patched locally.
type Controller struct {
	backend Backend

	mu     sync.Mutex
	peer   *models.User
	thread models.Thread
	gen    uint64
}

func New(backend Backend) *Controller {
	return &Controller{backend: backend, thread: emptyThread()}
}

func emptyThread() models.Thread {
	return models.Thread{Messages: []models.Message{}}
}

// Open makes user the active peer and loads the thread with them. Switching
// to a different peer drops the previous thread right away.
func (c *Controller) Open(ctx context.Context, user models.User) (models.Thread, error) {
	c.mu.Lock()
	if c.peer == nil || c.peer.Username != user.Username {
		c.thread = emptyThread()
	}
	u := user
	c.peer = &u
	c.mu.Unlock()

	return c.load(ctx, user.Username)
}

// Reload refetches the thread for the active peer.
func (c *Controller) Reload(ctx context.Context) (models.Thread, error) {
	peer := c.Peer()
	if peer == nil {
		return models.Thread{}, ErrNoPeer
	}
	return c.load(ctx, peer.Username)
}

// load tags the request with a generation; only the newest generation may
// write the result back.
func (c *Controller) load(ctx context.Context, username string) (models.Thread, error) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	th, err := c.backend.Thread(ctx, username)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.peer == nil || c.peer.Username != username {
		logger.Debug("thread_stale", "with_user", username, "generation", gen)
		return models.Thread{}, ErrStaleThread
	}
	if err != nil {
		logger.Warn("thread_failed", "with_user", username, "error", err)
		return copyThread(c.thread), fmt.Errorf("failed to load thread with %s: %w", username, err)
	}
	c.thread = th
	return copyThread(th), nil
}

// Send posts text to the active peer, then reloads the thread whatever the
// outcome. Blank text or no active peer is a no-op. sent reports whether the
// service accepted the message, which is when the compose field should be
// cleared. A rejected post is returned as err; otherwise err carries a
// reload failure, if any.
func (c *Controller) Send(ctx context.Context, text string) (sent bool, err error) {
	peer := c.Peer()
	if peer == nil || strings.TrimSpace(text) == "" {
		return false, nil
	}

	sendErr := c.backend.SendText(ctx, peer.Username, text)
	if sendErr != nil {
		logger.Warn("send_failed", "recipient", peer.Username, "error", sendErr)
	} else {
		logger.Debug("message_sent", "recipient", peer.Username)
	}

	_, loadErr := c.load(ctx, peer.Username)
	if sendErr != nil {
		return false, fmt.Errorf("failed to send message: %w", sendErr)
	}
	return true, loadErr
}

// ToggleBlock unblocks the peer if we blocked them, blocks otherwise, then
// reloads. A failed block/unblock is logged and not rolled back; the
// reloaded thread is what the caller should display.
func (c *Controller) ToggleBlock(ctx context.Context) (models.Thread, error) {
	c.mu.Lock()
	if c.peer == nil {
		c.mu.Unlock()
		return models.Thread{}, ErrNoPeer
	}
	target := c.peer.Username
	youBlocked := c.thread.YouBlocked
	c.mu.Unlock()

	var actionErr error
	if youBlocked {
		actionErr = c.backend.Unblock(ctx, target)
	} else {
		actionErr = c.backend.Block(ctx, target)
	}
	if actionErr != nil {
		logger.Warn("block_toggle_failed", "target", target, "unblock", youBlocked, "error", actionErr)
	}

	return c.load(ctx, target)
}

// CanSend reports whether the compose affordance should be enabled. The
// service enforces blocking on its own; this is only for the UI.
func (c *Controller) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer != nil && !c.thread.Blocked()
}

func (c *Controller) Peer() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.peer == nil {
		return nil
	}
	p := *c.peer
	return &p
}

func (c *Controller) Thread() models.Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyThread(c.thread)
}

// Close forgets the peer and thread. In-flight loads become stale.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peer = nil
	c.thread = emptyThread()
	c.gen++
}

func copyThread(t models.Thread) models.Thread {
	out := t
	out.Messages = make([]models.Message, len(t.Messages))
	copy(out.Messages, t.Messages)
	if t.Other != nil {
		o := *t.Other
		out.Other = &o
	}
	return out
}
