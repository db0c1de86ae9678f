package ui

import (
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned when the user aborts a spinner with ctrl+c.
var ErrInterrupted = errors.New("interrupted")

type taskDoneMsg struct {
	err error
}

// SpinnerModel shows a spinner while a task runs and quits when it ends.
type SpinnerModel struct {
	spinner spinner.Model
	label   string
	task    func() error
	err     error
	done    bool
}

// NewSpinnerModel creates a model that runs task and shows label meanwhile.
func NewSpinnerModel(label string, task func() error) SpinnerModel {
	return SpinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
		label:   label,
		task:    task,
	}
}

// Init implements tea.Model
func (m SpinnerModel) Init() tea.Cmd {
	task := m.task
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return taskDoneMsg{err: task()}
	})
}

// Update implements tea.Model
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			m.err = ErrInterrupted
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m SpinnerModel) View() string {
	if m.done {
		return ""
	}
	return "  " + m.spinner.View() + " " + m.label + "\n"
}

// Err returns the task result once the model has finished.
func (m SpinnerModel) Err() error {
	return m.err
}

// RunWithSpinner runs task behind a spinner on out. Without a terminal the
// task runs directly.
func RunWithSpinner(out io.Writer, label string, task func() error) error {
	if !IsTerminal() {
		return task()
	}

	final, err := tea.NewProgram(NewSpinnerModel(label, task), tea.WithOutput(out)).Run()
	if err != nil {
		return err
	}
	return final.(SpinnerModel).Err()
}
