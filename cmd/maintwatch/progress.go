package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/IvanDeyter/EmailBot/internal/theme"
)

var errInterrupted = errors.New("interrupted")

// stepDoneMsg carries the result of the step being waited on.
type stepDoneMsg struct{ err error }

// stepModel shows a spinner next to title until the step finishes.
type stepModel struct {
	title   string
	step    func() error
	spinner spinner.Model
	err     error
	done    bool
}

func newStepModel(title string, step func() error) stepModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.HelpStyle
	return stepModel{title: title, step: step, spinner: sp}
}

func (m stepModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return stepDoneMsg{err: m.step()}
	})
}

func (m stepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = errInterrupted
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m stepModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.title)
}

// withSpinner runs step while a spinner is drawn on stderr. Without a
// terminal the step just runs.
func withSpinner(title string, step func() error) error {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return step()
	}

	p := tea.NewProgram(newStepModel(title, step), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return err
	}
	return final.(stepModel).err
}
