package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type proxyCheckDoneMsg struct {
	err error
}

type proxyCheckSpinnerModel struct {
	spinner spinner.Model
	label   string
	check   tea.Cmd
	err     error
	done    bool
}

func newProxyCheckSpinnerModel(label string, check tea.Cmd) proxyCheckSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return proxyCheckSpinnerModel{
		spinner: s,
		label:   label,
		check:   check,
	}
}

func (m proxyCheckSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.check)
}

func (m proxyCheckSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case proxyCheckDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m proxyCheckSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

func runProxyCheckSpinner(ctx context.Context, output io.Writer, check func(context.Context) error) error {
	checkCmd := func() tea.Msg {
		return proxyCheckDoneMsg{err: check(ctx)}
	}

	p := tea.NewProgram(
		newProxyCheckSpinnerModel("Checking proxies...", checkCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(proxyCheckSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
