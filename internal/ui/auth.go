package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/saravenpi/slash/internal/session"
)

type authMode int

const (
	modeLogin authMode = iota
	modeSignup
)

const (
	fieldName = iota
	fieldUsername
	fieldPhone
	fieldPassword
)

type authFailedMsg struct {
	err error
}

type AuthModel struct {
	deps       Deps
	mode       authMode
	inputs     []textinput.Model
	focusIndex int
	submitting bool
	err        string
	spinner    spinner.Model
}

// NewAuthModel creates the login form. tab switches to signup.
func NewAuthModel(deps Deps) AuthModel {
	inputs := make([]textinput.Model, 4)
	placeholders := []string{"Full name", "Username", "Phone number", "Password"}
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholders[i]
		inputs[i].CharLimit = 100
		inputs[i].Width = 40
	}
	inputs[fieldPhone].CharLimit = 20
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	m := AuthModel{deps: deps, inputs: inputs, spinner: s}
	m.updateFocus()
	return m
}

func (m AuthModel) Init() tea.Cmd {
	return textinput.Blink
}

// fields lists the inputs shown in the current mode, in focus order.
func (m AuthModel) fields() []int {
	if m.mode == modeSignup {
		return []int{fieldName, fieldUsername, fieldPhone, fieldPassword}
	}
	return []int{fieldUsername, fieldPassword}
}

func (m AuthModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authFailedMsg:
		m.submitting = false
		var authErr *session.AuthError
		if errors.As(msg.err, &authErr) {
			m.err = authErr.Message
		} else {
			m.err = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		if m.submitting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}

		switch msg.String() {
		case "tab":
			if m.mode == modeLogin {
				m.mode = modeSignup
			} else {
				m.mode = modeLogin
			}
			m.focusIndex = 0
			m.err = ""
			m.updateFocus()
			return m, nil

		case "up", "shift+tab", "down":
			total := len(m.fields())
			if msg.String() == "down" {
				m.focusIndex = (m.focusIndex + 1) % total
			} else {
				m.focusIndex = (m.focusIndex - 1 + total) % total
			}
			m.updateFocus()
			return m, nil

		case "enter":
			if m.focusIndex < len(m.fields())-1 {
				m.focusIndex++
				m.updateFocus()
				return m, nil
			}
			if err := m.validate(); err != "" {
				m.err = err
				return m, nil
			}
			m.submitting = true
			m.err = ""
			return m, tea.Batch(m.spinner.Tick, m.submitCmd())
		}
	}

	cmd := m.updateInputs(msg)
	return m, cmd
}

func (m *AuthModel) updateFocus() {
	fields := m.fields()
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	if m.focusIndex >= len(fields) {
		m.focusIndex = 0
	}
	m.inputs[fields[m.focusIndex]].Focus()
}

func (m *AuthModel) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.inputs))
	for _, i := range m.fields() {
		var cmd tea.Cmd
		m.inputs[i], cmd = m.inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m AuthModel) value(field int) string {
	v := m.inputs[field].Value()
	if field == fieldPassword {
		return v
	}
	return strings.TrimSpace(v)
}

func (m AuthModel) validate() string {
	for _, f := range m.fields() {
		if m.value(f) == "" {
			return "All fields are required"
		}
	}
	return ""
}

func (m AuthModel) submitCmd() tea.Cmd {
	sessions := m.deps.Sessions
	sh := m.deps.Shell
	mode := m.mode
	name, username, phone, password := m.value(fieldName), m.value(fieldUsername), m.value(fieldPhone), m.value(fieldPassword)
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		if mode == modeSignup {
			_, err = sessions.Signup(ctx, name, username, phone, password)
		} else {
			_, err = sessions.Login(ctx, username, password)
		}
		if err != nil {
			return authFailedMsg{err: err}
		}
		return stateMsg{state: sh.State()}
	}
}

func (m AuthModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Slash Messenger") + "\n")
	if m.mode == modeSignup {
		b.WriteString(subtitleStyle.Render("Create account") + "\n\n")
	} else {
		b.WriteString(subtitleStyle.Render("Sign in") + "\n\n")
	}

	for i, f := range m.fields() {
		style := blurredStyle
		if i == m.focusIndex {
			style = focusedStyle
		}
		b.WriteString(style.Render(m.inputs[f].Placeholder) + "\n")
		b.WriteString(m.inputs[f].View() + "\n\n")
	}

	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err) + "\n\n")
	}
	if m.submitting {
		b.WriteString(m.spinner.View() + " Please wait...\n\n")
	}

	if m.mode == modeSignup {
		b.WriteString(helpStyle.Render("↑↓: navigate • enter: next/sign up • tab: have an account? sign in • ctrl+c: quit"))
	} else {
		b.WriteString(helpStyle.Render("↑↓: navigate • enter: next/sign in • tab: new here? sign up • ctrl+c: quit"))
	}
	return b.String()
}
