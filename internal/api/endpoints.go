package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/saravenpi/slash/internal/models"
)

func (c *Client) Login(ctx context.Context, username, password string) (models.AuthResult, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/login", nil,
		models.LoginRequest{Username: username, Password: password}, false)
	if err != nil {
		return models.AuthResult{}, err
	}
	return models.DecodeAuthResult(data)
}

func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (models.AuthResult, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/signup", nil, req, false)
	if err != nil {
		return models.AuthResult{}, err
	}
	return models.DecodeAuthResult(data)
}

// Me fetches the profile belonging to the current token.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	data, err := c.do(ctx, http.MethodGet, "/me", nil, nil, true)
	if err != nil {
		return models.User{}, err
	}
	return models.DecodeUser(data)
}

// SearchUsers matches name, username or phone on the service side.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	data, err := c.do(ctx, http.MethodGet, "/users/search", url.Values{"q": {query}}, nil, true)
	if err != nil {
		return nil, err
	}
	return models.DecodeUsers(data)
}

func (c *Client) Thread(ctx context.Context, withUser string) (models.Thread, error) {
	data, err := c.do(ctx, http.MethodGet, "/messages/thread", url.Values{"with_user": {withUser}}, nil, true)
	if err != nil {
		return models.Thread{}, err
	}
	return models.DecodeThread(data)
}

func (c *Client) SendText(ctx context.Context, recipient, text string) error {
	_, err := c.do(ctx, http.MethodPost, "/messages/send", nil,
		models.SendRequest{Recipient: recipient, MsgType: models.TextMessage, Text: text}, true)
	return err
}

func (c *Client) Block(ctx context.Context, target string) error {
	_, err := c.do(ctx, http.MethodPost, "/block", url.Values{"target": {target}}, nil, true)
	return err
}

func (c *Client) Unblock(ctx context.Context, target string) error {
	_, err := c.do(ctx, http.MethodDelete, "/block", url.Values{"target": {target}}, nil, true)
	return err
}

func (c *Client) AdminUsers(ctx context.Context) ([]models.User, error) {
	data, err := c.do(ctx, http.MethodGet, "/admin/users", nil, nil, true)
	if err != nil {
		return nil, err
	}
	return models.DecodeUsers(data)
}

func (c *Client) Suspend(ctx context.Context, username string) error {
	_, err := c.do(ctx, http.MethodPost, "/admin/suspend", nil, models.UsernameRequest{Username: username}, true)
	return err
}

func (c *Client) Activate(ctx context.Context, username string) error {
	_, err := c.do(ctx, http.MethodPost, "/admin/activate", nil, models.UsernameRequest{Username: username}, true)
	return err
}

// BackupURL is the export endpoint, suitable for handing to a browser.
func (c *Client) BackupURL() string {
	return c.endpoint("/admin/backup.pdf", nil)
}

// DownloadBackup streams the export artifact into w and returns the number
// of bytes written. Unlike the other calls the body is not buffered.
func (c *Client) DownloadBackup(ctx context.Context, w io.Writer) (int64, error) {
	token := c.tokens.Token()
	if token == "" {
		return 0, ErrNotAuthenticated
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BackupURL(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET /admin/backup.pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return 0, newError(resp.StatusCode, body)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write backup: %w", err)
	}
	return n, nil
}
