package admin

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/saravenpi/slash/internal/api"
	"github.com/saravenpi/slash/internal/logger"
	"github.com/saravenpi/slash/internal/models"
)

// Error is the banner text shown when the account list cannot be loaded.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

type Backend interface {
	AdminUsers(ctx context.Context) ([]models.User, error)
	Suspend(ctx context.Context, username string) error
	Activate(ctx context.Context, username string) error
	BackupURL() string
	DownloadBackup(ctx context.Context, w io.Writer) (int64, error)
}

// Controller holds the account list of the admin panel.
type Controller struct {
	backend Backend
	opener  Opener

	mu    sync.RWMutex
	users []models.User
}

func New(backend Backend, opener Opener) *Controller {
	if opener == nil {
		opener = BrowserOpener{}
	}
	return &Controller{backend: backend, opener: opener, users: []models.User{}}
}

// LoadUsers fetches every account and replaces the list. The previous list
// is kept on failure.
func (c *Controller) LoadUsers(ctx context.Context) ([]models.User, error) {
	users, err := c.backend.AdminUsers(ctx)
	if err != nil {
		logger.Warn("admin_users_failed", "error", err)
		return c.Users(), &Error{Message: api.Message(err, "Failed"), Err: err}
	}
	c.mu.Lock()
	c.users = users
	c.mu.Unlock()
	return c.Users(), nil
}

// SetActive flips an account. active is the account's current state as
// shown in the list: an active account gets suspended, an inactive one gets
// activated. The list is reloaded whatever the outcome, so repeated calls
// converge on the service's view.
func (c *Controller) SetActive(ctx context.Context, user models.User, active bool) ([]models.User, error) {
	var err error
	if active {
		err = c.backend.Suspend(ctx, user.Username)
	} else {
		err = c.backend.Activate(ctx, user.Username)
	}
	if err != nil {
		logger.Warn("admin_set_active_failed", "username", user.Username, "suspend", active, "error", err)
	} else {
		logger.Info("admin_set_active", "username", user.Username, "suspend", active)
	}
	return c.LoadUsers(ctx)
}

func (c *Controller) Users() []models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.User, len(c.users))
	copy(out, c.users)
	return out
}

func (c *Controller) BackupURL() string {
	return c.backend.BackupURL()
}

// ExportBackup hands the export endpoint to the system browser. The client
// never looks at the artifact.
func (c *Controller) ExportBackup() error {
	u := c.backend.BackupURL()
	if err := c.opener.Open(u); err != nil {
		return fmt.Errorf("failed to open backup export: %w", err)
	}
	logger.Info("backup_export_opened", "url", u)
	return nil
}

// DownloadBackup writes the export into w using the session's token.
func (c *Controller) DownloadBackup(ctx context.Context, w io.Writer) (int64, error) {
	n, err := c.backend.DownloadBackup(ctx, w)
	if err != nil {
		return n, err
	}
	logger.Info("backup_downloaded", "bytes", n)
	return n, nil
}
