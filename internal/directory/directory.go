package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/saravenpi/slash/internal/logger"
	"github.com/saravenpi/slash/internal/models"
)

type Searcher interface {
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// Directory holds the result set of the last successful lookup.
type Directory struct {
	backend Searcher

	mu      sync.RWMutex
	results []models.User
}

func New(backend Searcher) *Directory {
	return &Directory{backend: backend, results: []models.User{}}
}

// Search replaces the result set with the service's answer for query.
// Blank queries are ignored and return the current results unchanged. On
// error the previous results are kept.
func (d *Directory) Search(ctx context.Context, query string) ([]models.User, error) {
	if strings.TrimSpace(query) == "" {
		return d.Results(), nil
	}

	users, err := d.backend.SearchUsers(ctx, query)
	if err != nil {
		logger.Warn("search_failed", "query", query, "error", err)
		return d.Results(), err
	}

	d.mu.Lock()
	d.results = users
	d.mu.Unlock()

	logger.Debug("search", "query", query, "results", len(users))
	return d.Results(), nil
}

func (d *Directory) Results() []models.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.User, len(d.results))
	copy(out, d.results)
	return out
}

// Reset drops the results, used on logout.
func (d *Directory) Reset() {
	d.mu.Lock()
	d.results = []models.User{}
	d.mu.Unlock()
}
