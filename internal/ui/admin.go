package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/slash/internal/admin"
	"github.com/saravenpi/slash/internal/models"
)

type accountItem struct {
	user models.User
}

func (i accountItem) FilterValue() string { return i.user.Username }
func (i accountItem) Title() string {
	if i.user.IsAdmin() {
		return i.user.DisplayName() + " " + adminBadge()
	}
	return i.user.DisplayName()
}
func (i accountItem) Description() string {
	status := activeStyle.Render("active")
	if !i.user.IsActive {
		status = suspendedStyle.Render("suspended")
	}
	return fmt.Sprintf("@%s • %s • %s", i.user.Username, i.user.Phone, status)
}

type usersLoadedMsg struct {
	users []models.User
	err   error
}

type backupOpenedMsg struct {
	err error
}

type AdminModel struct {
	deps    Deps
	list    list.Model
	loading bool
	err     string
	notice  string
	spinner spinner.Model

	windowWidth  int
	windowHeight int
}

func NewAdminModel(deps Deps) AdminModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("39")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Admin panel"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return AdminModel{
		deps:         deps,
		list:         l,
		loading:      true,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m AdminModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadUsersCmd())
}

func (m AdminModel) loadUsersCmd() tea.Cmd {
	ctl := m.deps.Admin
	return func() tea.Msg {
		users, err := ctl.LoadUsers(context.Background())
		return usersLoadedMsg{users: users, err: err}
	}
}

func (m AdminModel) setActiveCmd(user models.User) tea.Cmd {
	ctl := m.deps.Admin
	return func() tea.Msg {
		users, err := ctl.SetActive(context.Background(), user, user.IsActive)
		return usersLoadedMsg{users: users, err: err}
	}
}

func (m AdminModel) exportCmd() tea.Cmd {
	ctl := m.deps.Admin
	return func() tea.Msg {
		return backupOpenedMsg{err: ctl.ExportBackup()}
	}
}

func (m AdminModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 6)
		return m, nil

	case usersLoadedMsg:
		m.loading = false
		m.err = ""
		if msg.err != nil {
			var adminErr *admin.Error
			if errors.As(msg.err, &adminErr) {
				m.err = adminErr.Message
			} else {
				m.err = msg.err.Error()
			}
		}
		items := make([]list.Item, len(msg.users))
		for i, u := range msg.users {
			items[i] = accountItem{user: u}
		}
		m.list.SetItems(items)
		m.list.Title = fmt.Sprintf("Admin panel - %d accounts", len(msg.users))
		return m, nil

	case backupOpenedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Could not open backup: %v", msg.err)
		} else {
			m.notice = "Backup opened in your browser"
		}
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+l":
			return m, logoutCmd(m.deps.Shell)
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.loadUsersCmd())
		case "s":
			if m.loading {
				return m, nil
			}
			item, ok := m.list.SelectedItem().(accountItem)
			if !ok {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.setActiveCmd(item.user))
		case "e":
			return m, m.exportCmd()
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m AdminModel) View() string {
	if m.loading && len(m.list.Items()) == 0 {
		return fmt.Sprintf("\n  %s Loading accounts...\n", m.spinner.View())
	}

	s := ""
	if m.err != "" {
		s += errorStyle.Render(m.err) + "\n\n"
	}
	s += m.list.View() + "\n"
	if m.loading {
		s += m.spinner.View() + " Updating...\n"
	}
	if m.notice != "" {
		s += statusStyle.Render(m.notice) + "\n"
	}

	action := "s: suspend/activate"
	if item, ok := m.list.SelectedItem().(accountItem); ok {
		if item.user.IsActive {
			action = "s: suspend"
		} else {
			action = "s: activate"
		}
	}
	s += helpStyle.Render(fmt.Sprintf("↑↓/jk: navigate • %s • e: backup PDF • r: reload • /: filter • ctrl+l: logout", action))
	return s
}
