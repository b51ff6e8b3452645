package tui

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCanceled is returned by Spinner.Run when the user interrupts it.
var ErrCanceled = errors.New("canceled")

type spinnerModel struct {
	spinner  spinner.Model
	message  string
	styles   *Styles
	done     bool
	err      error
	quitting bool
}

type (
	spinnerDoneMsg   struct{ err error }
	spinnerStatusMsg string
)

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case spinnerStatusMsg:
		if msg != "" {
			m.message = string(msg)
		}
	case spinnerDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View clears itself once the work finishes so the result printed
// afterwards starts on a clean line.
func (m spinnerModel) View() string {
	if m.done || m.quitting {
		return ""
	}
	return m.spinner.View() + " " + m.styles.Muted.Render(m.message) + "\n"
}

// Spinner shows progress on a terminal while work runs.
type Spinner struct {
	message string
	out     io.Writer
	styles  *Styles
}

// NewSpinner creates a spinner that writes to out, usually stderr.
func NewSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{message: message, out: out}
}

// Run calls fn while the spinner animates. fn may call status to replace
// the message. Interrupting the spinner cancels fn's context.
func (s *Spinner) Run(ctx context.Context, fn func(ctx context.Context, status func(string)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	styles := s.styles
	if styles == nil {
		styles = NewStyles()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Cursor

	m := spinnerModel{spinner: sp, message: s.message, styles: styles}
	p := tea.NewProgram(m, tea.WithOutput(s.out), tea.WithInput(nil), tea.WithContext(ctx))

	go func() {
		err := fn(ctx, func(msg string) { p.Send(spinnerStatusMsg(msg)) })
		p.Send(spinnerDoneMsg{err: err})
	}()

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return ErrCanceled
		}
		return err
	}
	fm, _ := final.(spinnerModel)
	if fm.quitting {
		return ErrCanceled
	}
	return fm.err
}
