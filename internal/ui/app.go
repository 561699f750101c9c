package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/saravenpi/slash/internal/admin"
	"github.com/saravenpi/slash/internal/conversation"
	"github.com/saravenpi/slash/internal/directory"
	"github.com/saravenpi/slash/internal/logger"
	"github.com/saravenpi/slash/internal/session"
	"github.com/saravenpi/slash/internal/shell"
)

// Deps are the controllers the screens talk to.
type Deps struct {
	Shell        *shell.Shell
	Sessions     *session.Store
	Directory    *directory.Directory
	Conversation *conversation.Controller
	Admin        *admin.Controller
}

// stateMsg reports where the shell ended up after a start, login, resolve
// or logout.
type stateMsg struct {
	state shell.State
	err   error
}

func startCmd(sh *shell.Shell) tea.Cmd {
	return func() tea.Msg {
		state, err := sh.Start(context.Background())
		return stateMsg{state: state, err: err}
	}
}

func resolveCmd(sh *shell.Shell) tea.Cmd {
	return func() tea.Msg {
		return stateMsg{state: sh.Resolve(context.Background())}
	}
}

func logoutCmd(sh *shell.Shell) tea.Cmd {
	return func() tea.Msg {
		state, err := sh.Logout(context.Background())
		return stateMsg{state: state, err: err}
	}
}

// AppModel is the root model. It owns no screen state of its own and swaps
// the active screen whenever the shell changes state.
type AppModel struct {
	deps         Deps
	state        shell.State
	screen       tea.Model
	windowWidth  int
	windowHeight int
}

func NewAppModel(deps Deps) AppModel {
	return AppModel{
		deps:         deps,
		state:        shell.Loading,
		screen:       NewLoadingModel("Restoring session...", startCmd(deps.Shell)),
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.screen.Init()
}

func (m AppModel) screenFor(state shell.State) tea.Model {
	switch state {
	case shell.Loading:
		return NewLoadingModel("Loading profile...", resolveCmd(m.deps.Shell))
	case shell.AuthenticatedUser:
		return NewChatModel(m.deps)
	case shell.AuthenticatedAdmin:
		return NewAdminModel(m.deps)
	default:
		return NewAuthModel(m.deps)
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height

	case stateMsg:
		if msg.err != nil {
			logger.Error("shell_state_error", "state", msg.state.String(), "error", msg.err)
		}
		if msg.state == m.state {
			return m, nil
		}
		if msg.state == shell.Unauthenticated {
			m.deps.Conversation.Close()
			m.deps.Directory.Reset()
		}
		m.state = msg.state
		m.screen = m.screenFor(msg.state)
		updated, sizeCmd := m.screen.Update(tea.WindowSizeMsg{Width: m.windowWidth, Height: m.windowHeight})
		m.screen = updated
		return m, tea.Batch(m.screen.Init(), sizeCmd)
	}

	var cmd tea.Cmd
	m.screen, cmd = m.screen.Update(msg)
	return m, cmd
}

func (m AppModel) View() string {
	return m.screen.View()
}

// State is the shell state the current screen was built for.
func (m AppModel) State() shell.State {
	return m.state
}
