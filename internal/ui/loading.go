package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// LoadingModel shows a spinner while task runs. task must answer with a
// stateMsg, which the root model acts on.
type LoadingModel struct {
	label   string
	task    tea.Cmd
	spinner spinner.Model
}

func NewLoadingModel(label string, task tea.Cmd) LoadingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle
	return LoadingModel{label: label, task: task, spinner: s}
}

func (m LoadingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.task)
}

func (m LoadingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m LoadingModel) View() string {
	return fmt.Sprintf("\n  %s %s\n", m.spinner.View(), m.label)
}
