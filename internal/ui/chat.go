package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/saravenpi/slash/internal/conversation"
	"github.com/saravenpi/slash/internal/models"
)

type pane int

const (
	paneSearch pane = iota
	paneResults
	paneThread
	paneCompose
)

const sidebarWidth = 32

type userItem struct {
	user models.User
}

func (i userItem) FilterValue() string { return i.user.Username }
func (i userItem) Title() string       { return i.user.DisplayName() }
func (i userItem) Description() string {
	if i.user.Phone == "" {
		return "@" + i.user.Username
	}
	return fmt.Sprintf("@%s • %s", i.user.Username, i.user.Phone)
}

type searchDoneMsg struct {
	users []models.User
	err   error
}

type threadMsg struct {
	err error
}

type sentMsg struct {
	sent bool
	err  error
}

type ChatModel struct {
	deps Deps
	me   *models.User

	focus    pane
	search   textinput.Model
	results  list.Model
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	peer    *models.User
	thread  models.Thread
	loading bool
	sending bool

	windowWidth  int
	windowHeight int
}

func NewChatModel(deps Deps) ChatModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	search := textinput.New()
	search.Placeholder = "Search by name, username or phone"
	search.CharLimit = 100
	search.Width = sidebarWidth - 4
	search.Focus()

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("39")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, sidebarWidth, 20)
	l.Title = "People"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	vp := viewport.New(60, 20)

	ta := textarea.New()
	ta.Placeholder = "Type a message"
	ta.CharLimit = 1000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	m := ChatModel{
		deps:         deps,
		search:       search,
		results:      l,
		viewport:     vp,
		textarea:     ta,
		spinner:      s,
		thread:       deps.Conversation.Thread(),
		peer:         deps.Conversation.Peer(),
		windowWidth:  100,
		windowHeight: 30,
	}
	if deps.Sessions != nil {
		m.me = deps.Sessions.Current().Profile
	}
	m.setResults(deps.Directory.Results())
	return m
}

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ChatModel) searchCmd(query string) tea.Cmd {
	dir := m.deps.Directory
	return func() tea.Msg {
		users, err := dir.Search(context.Background(), query)
		return searchDoneMsg{users: users, err: err}
	}
}

func (m ChatModel) openCmd(user models.User) tea.Cmd {
	conv := m.deps.Conversation
	return func() tea.Msg {
		_, err := conv.Open(context.Background(), user)
		return threadMsg{err: err}
	}
}

func (m ChatModel) reloadCmd() tea.Cmd {
	conv := m.deps.Conversation
	return func() tea.Msg {
		_, err := conv.Reload(context.Background())
		return threadMsg{err: err}
	}
}

func (m ChatModel) toggleBlockCmd() tea.Cmd {
	conv := m.deps.Conversation
	return func() tea.Msg {
		_, err := conv.ToggleBlock(context.Background())
		return threadMsg{err: err}
	}
}

func (m ChatModel) sendCmd(text string) tea.Cmd {
	conv := m.deps.Conversation
	return func() tea.Msg {
		sent, err := conv.Send(context.Background(), text)
		return sentMsg{sent: sent, err: err}
	}
}

func (m *ChatModel) setResults(users []models.User) {
	items := make([]list.Item, len(users))
	for i, u := range users {
		items[i] = userItem{user: u}
	}
	m.results.SetItems(items)
	m.results.Title = fmt.Sprintf("People - %d found", len(users))
}

// syncThread pulls the controller's current view of the conversation.
func (m *ChatModel) syncThread() {
	m.thread = m.deps.Conversation.Thread()
	m.peer = m.deps.Conversation.Peer()
	if m.thread.TheyBlocked {
		m.textarea.Placeholder = "You are blocked"
	} else if m.thread.YouBlocked {
		m.textarea.Placeholder = "Unblock to send messages"
	} else {
		m.textarea.Placeholder = "Type a message"
	}
	if m.focus == paneCompose && !m.deps.Conversation.CanSend() {
		m.setFocus(paneThread)
	}
	m.updateViewportContent()
	m.viewport.GotoBottom()
}

func (m *ChatModel) setFocus(p pane) {
	m.focus = p
	m.search.Blur()
	m.textarea.Blur()
	switch p {
	case paneSearch:
		m.search.Focus()
	case paneCompose:
		m.textarea.Focus()
	}
}

// nextPane cycles focus, skipping the compose box while sending is disabled.
func (m ChatModel) nextPane() pane {
	next := (m.focus + 1) % 4
	if next == paneCompose && !m.deps.Conversation.CanSend() {
		next = paneSearch
	}
	return next
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height

		mainWidth := msg.Width - sidebarWidth - 8
		if mainWidth < 20 {
			mainWidth = 20
		}
		headerHeight := 4
		composeHeight := 6
		helpHeight := 2
		m.viewport.Width = mainWidth
		m.viewport.Height = msg.Height - headerHeight - composeHeight - helpHeight - 4
		m.textarea.SetWidth(mainWidth)
		m.results.SetWidth(sidebarWidth)
		m.results.SetHeight(msg.Height - headerHeight - helpHeight - 6)
		m.updateViewportContent()
		return m, nil

	case searchDoneMsg:
		m.setResults(msg.users)
		if msg.err == nil && len(msg.users) > 0 {
			m.setFocus(paneResults)
		}
		return m, nil

	case threadMsg:
		m.loading = false
		if errors.Is(msg.err, conversation.ErrStaleThread) {
			return m, nil
		}
		m.syncThread()
		return m, nil

	case sentMsg:
		m.sending = false
		if msg.sent {
			m.textarea.Reset()
		}
		// the controller reloads after every post, accepted or not
		m.syncThread()
		return m, nil

	case spinner.TickMsg:
		if m.loading || m.sending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+l":
			return m, logoutCmd(m.deps.Shell)
		case "tab":
			m.setFocus(m.nextPane())
			return m, nil
		case "esc":
			if m.focus == paneCompose {
				m.setFocus(paneThread)
				return m, nil
			}
			m.setFocus(paneSearch)
			return m, nil
		}

		switch m.focus {
		case paneSearch:
			if msg.String() == "enter" {
				query := m.search.Value()
				if strings.TrimSpace(query) == "" {
					return m, nil
				}
				return m, m.searchCmd(query)
			}
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			return m, cmd

		case paneResults:
			if msg.String() == "enter" {
				item, ok := m.results.SelectedItem().(userItem)
				if !ok {
					return m, nil
				}
				if m.peer == nil || m.peer.Username != item.user.Username {
					m.thread = models.Thread{Messages: []models.Message{}}
					m.viewport.SetContent("")
				}
				u := item.user
				m.peer = &u
				m.loading = true
				m.setFocus(paneThread)
				return m, tea.Batch(m.spinner.Tick, m.openCmd(item.user))
			}
			var cmd tea.Cmd
			m.results, cmd = m.results.Update(msg)
			return m, cmd

		case paneThread:
			if m.peer == nil {
				return m, nil
			}
			switch msg.String() {
			case "b":
				if m.loading {
					return m, nil
				}
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, m.toggleBlockCmd())
			case "r":
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, m.reloadCmd())
			case "c", "n", "enter":
				if m.deps.Conversation.CanSend() {
					m.setFocus(paneCompose)
					return m, textarea.Blink
				}
				return m, nil
			}
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case paneCompose:
			if msg.String() == "ctrl+s" {
				text := strings.TrimSpace(m.textarea.Value())
				if text == "" || m.sending {
					return m, nil
				}
				m.sending = true
				return m, tea.Batch(m.spinner.Tick, m.sendCmd(text))
			}
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m ChatModel) fromMe(msg models.Message) bool {
	if m.me != nil {
		return msg.Sender == m.me.Username
	}
	return m.peer != nil && msg.Sender != m.peer.Username
}

func (m *ChatModel) updateViewportContent() {
	if len(m.thread.Messages) == 0 {
		m.viewport.SetContent("")
		return
	}

	var content strings.Builder
	wrapWidth := m.viewport.Width
	if wrapWidth <= 0 {
		wrapWidth = 60
	}
	textWidth := wrapWidth - 10
	if textWidth < 10 {
		textWidth = wrapWidth
	}
	right := lipgloss.NewStyle().Align(lipgloss.Right).Width(wrapWidth)

	for i, message := range m.thread.Messages {
		if i > 0 {
			content.WriteString("\n")
		}
		wrapped := wordwrap.String(message.Text, textWidth)

		if m.fromMe(message) {
			content.WriteString(right.Render(messageHeaderStyle.Render("You")) + "\n")
			content.WriteString(right.Render(messageFromMeStyle.Render(wrapped)) + "\n")
			continue
		}
		content.WriteString(messageHeaderStyle.Render("@"+message.Sender) + "\n")
		content.WriteString(messageFromOtherStyle.Render(wrapped) + "\n")
	}

	m.viewport.SetContent(content.String())
}

func (m ChatModel) header() string {
	s := titleStyle.Render("Slash Messenger")
	if m.me != nil {
		s += "  " + subtitleStyle.Render(fmt.Sprintf("%s (@%s)", m.me.DisplayName(), m.me.Username))
		if m.me.IsAdmin() {
			s += " " + adminBadge()
		}
	}
	return s
}

func (m ChatModel) sidebarView() string {
	var b strings.Builder
	b.WriteString(inputStyle.Render("Search") + "\n")
	b.WriteString(m.search.View() + "\n\n")
	if len(m.results.Items()) == 0 {
		b.WriteString(helpStyle.Render("No people to show."))
	} else {
		b.WriteString(m.results.View())
	}

	style := paneStyle
	if m.focus == paneSearch || m.focus == paneResults {
		style = activePaneStyle
	}
	return style.Width(sidebarWidth).Render(b.String())
}

func (m ChatModel) threadView() string {
	var b strings.Builder

	if m.peer == nil {
		b.WriteString(normalStyle.Render("Select someone to start chatting."))
	} else {
		b.WriteString(inputStyle.Render(m.peer.DisplayName()) + " " + helpStyle.Render("@"+m.peer.Username))
		if m.loading {
			b.WriteString(" " + m.spinner.View())
		}
		b.WriteString("\n")
		switch {
		case m.thread.YouBlocked:
			b.WriteString(blockedStyle.Render("You blocked this user") + "\n")
		case m.thread.TheyBlocked:
			b.WriteString(blockedStyle.Render("You are blocked") + "\n")
		}
		b.WriteString("\n")

		if len(m.thread.Messages) == 0 && !m.loading {
			b.WriteString(normalStyle.Render("No messages yet.") + "\n")
		} else {
			b.WriteString(m.viewport.View() + "\n")
		}

		b.WriteString("\n")
		if m.sending {
			b.WriteString(fmt.Sprintf("%s Sending message...\n", m.spinner.View()))
		}
		if m.deps.Conversation.CanSend() || m.textarea.Value() != "" {
			b.WriteString(m.textarea.View())
		} else {
			b.WriteString(helpStyle.Render(m.textarea.Placeholder))
		}
	}

	style := paneStyle
	if m.focus == paneThread || m.focus == paneCompose {
		style = activePaneStyle
	}
	return style.Width(m.viewport.Width + 2).Render(b.String())
}

func (m ChatModel) help() string {
	switch m.focus {
	case paneSearch:
		return "enter: search • tab: next pane • ctrl+l: logout • ctrl+c: quit"
	case paneResults:
		return "↑↓/jk: navigate • enter: open • tab: next pane • esc: search • ctrl+l: logout"
	case paneCompose:
		return "ctrl+s: send • esc: cancel • ctrl+l: logout"
	default:
		block := "b: block"
		if m.thread.YouBlocked {
			block = "b: unblock"
		}
		return fmt.Sprintf("↑↓: scroll • c: compose • %s • r: refresh • tab: next pane • ctrl+l: logout", block)
	}
}

func (m ChatModel) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), " ", m.threadView())
	return m.header() + "\n" + body + "\n" + helpStyle.Render(m.help())
}
