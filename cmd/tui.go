package cmd

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/saravenpi/slash/internal/admin"
	"github.com/saravenpi/slash/internal/conversation"
	"github.com/saravenpi/slash/internal/directory"
	"github.com/saravenpi/slash/internal/logger"
	"github.com/saravenpi/slash/internal/shell"
	"github.com/saravenpi/slash/internal/ui"
)

func runTUI() error {
	a, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer a.Close()

	sh := shell.New(a.sessions)
	defer sh.Close()

	deps := ui.Deps{
		Shell:        sh,
		Sessions:     a.sessions,
		Directory:    directory.New(a.client),
		Conversation: conversation.New(a.client),
		Admin:        admin.New(a.client, admin.BrowserOpener{}),
	}

	logger.Info("client_started", "backend", a.cfg.Backend.URL, "version", version)
	p := tea.NewProgram(ui.NewAppModel(deps), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
