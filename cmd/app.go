package cmd

import (
	"fmt"
	"os"

	"github.com/saravenpi/slash/internal/api"
	"github.com/saravenpi/slash/internal/config"
	"github.com/saravenpi/slash/internal/logger"
	"github.com/saravenpi/slash/internal/session"
	"github.com/saravenpi/slash/internal/storage"
)

// app bundles what every command needs: config, the persisted session and
// an API client authenticated from it.
type app struct {
	cfg      *config.Config
	store    *storage.Store
	client   *api.Client
	sessions *session.Store
}

// bootstrap loads configuration and opens local state. interactive routes
// logs to the log file instead of stderr.
func bootstrap(interactive bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if verbose && !interactive {
		logger.InitWriter("debug", os.Stderr)
	} else if err := logger.Init(cfg.Log.Level, cfg.LogPath()); err != nil {
		return nil, err
	}
	logger.Debug("config_loaded", "config", cfg.String())

	store, err := storage.Open(cfg.SessionDBPath())
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	client := api.NewClient(cfg.Backend.URL)
	sessions := session.New(client, store)
	client.SetTokenSource(sessions)

	return &app{cfg: cfg, store: store, client: client, sessions: sessions}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("storage_close_failed", "error", err)
	}
	logger.Close()
}
