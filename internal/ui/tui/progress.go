// Package tui runs full-screen Bubble Tea programs: the batch progress view
// and the interactive pickers used before a batch starts.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/theanmol-raj/qnagen/internal/ui/components"
	"github.com/theanmol-raj/qnagen/internal/ui/layout"
	"github.com/theanmol-raj/qnagen/internal/ui/theme"
)

// maxFailures is how many recent row failures the view lists.
const maxFailures = 8

type statusMsg string

type progressMsg struct{ done, total int }

type rowFailedMsg struct {
	row int
	err error
}

type doneMsg struct{ err error }

// ProgressModel is the Bubble Tea model of a running batch.
type ProgressModel struct {
	title    string
	detail   string
	status   string
	bar      components.ProgressBar
	failures []string
	failed   int
	finished bool
	err      error
	cancel   context.CancelFunc
	width    int
	height   int
}

// NewProgressModel creates the view. cancel is called when the user quits.
func NewProgressModel(title, detail string, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{
		title:  title,
		detail: detail,
		status: "Starting",
		bar:    components.NewProgressBar("", 40),
		cancel: cancel,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.finished {
				return m, tea.Quit
			}
			if m.cancel != nil {
				m.cancel()
			}
			m.status = "Cancelling after the current row..."
			return m, nil
		case "enter":
			if m.finished {
				return m, tea.Quit
			}
		}

	case statusMsg:
		m.status = string(msg)

	case progressMsg:
		m.bar.Done, m.bar.Total = msg.done, msg.total

	case rowFailedMsg:
		m.failed++
		m.failures = append(m.failures, fmt.Sprintf("Row %d: %v", msg.row, msg.err))
		if len(m.failures) > maxFailures {
			m.failures = m.failures[len(m.failures)-maxFailures:]
		}

	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m ProgressModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		v.SetContent(m.body())
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	header := layout.RenderHeader(m.title, m.detail, m.width)
	footer := layout.RenderFooter([]layout.KeyHint{{Key: "q", Description: "Cancel"}}, m.width)
	v.SetContent(layout.RenderFrame(header, m.body(), footer, m.width, m.height))
	return v
}

func (m ProgressModel) body() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.bar.View())
	b.WriteString("\n\n")
	b.WriteString(theme.Body.Render(m.status))
	b.WriteString("\n")

	if m.failed > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Failed.Render(fmt.Sprintf("%d failed", m.failed)))
		b.WriteString("\n")
		lines := lipgloss.NewStyle().Foreground(theme.TextDim).Render(strings.Join(m.failures, "\n"))
		b.WriteString(lines)
		b.WriteString("\n")
	}
	return b.String()
}

// Reporter forwards batch progress to a running program.
type Reporter struct {
	p *tea.Program
}

func (r Reporter) Status(msg string)            { r.p.Send(statusMsg(msg)) }
func (r Reporter) Progress(done, total int)     { r.p.Send(progressMsg{done, total}) }
func (r Reporter) RowFailed(row int, err error) { r.p.Send(rowFailedMsg{row, err}) }

// Work is the batch body run while the progress view is on screen.
type Work func(ctx context.Context, rep Reporter) error

// RunProgress shows the progress view while work runs. Quitting the view
// cancels the context passed to work. It returns work's error.
func RunProgress(ctx context.Context, title, detail string, work Work, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(title, detail, cancel), opts...)

	errc := make(chan error, 1)
	go func() {
		err := work(ctx, Reporter{p: p})
		errc <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return fmt.Errorf("progress view: %w", err)
	}
	return <-errc
}
