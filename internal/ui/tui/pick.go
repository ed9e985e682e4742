package tui

import (
	"errors"

	tea "charm.land/bubbletea/v2"

	"github.com/theanmol-raj/qnagen/internal/ui/components"
)

// ErrAborted is returned when the user quits a prompt without answering.
var ErrAborted = errors.New("aborted")

type pickerModel struct {
	picker  components.Picker
	aborted bool
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && (k.String() == "ctrl+c" || k.String() == "esc") {
		m.aborted = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if _, ok := m.picker.Chosen(); ok {
		return m, tea.Quit
	}
	return m, cmd
}

func (m pickerModel) View() tea.View {
	return tea.NewView(m.picker.View())
}

// Choose asks the user to pick one of items and returns its index.
func Choose(title string, items []string, initial int, opts ...tea.ProgramOption) (int, error) {
	final, err := tea.NewProgram(pickerModel{picker: components.NewPicker(title, items, initial)}, opts...).Run()
	if err != nil {
		return 0, err
	}
	m := final.(pickerModel)
	idx, ok := m.picker.Chosen()
	if m.aborted || !ok {
		return 0, ErrAborted
	}
	return idx, nil
}

type secretModel struct {
	input   components.SecretInput
	aborted bool
}

func (m secretModel) Init() tea.Cmd { return m.input.Init() }

func (m secretModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && (k.String() == "ctrl+c" || k.String() == "esc") {
		m.aborted = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Submitted() {
		return m, tea.Quit
	}
	return m, cmd
}

func (m secretModel) View() tea.View {
	return tea.NewView(m.input.View())
}

// PromptSecret reads a masked value such as an API key.
func PromptSecret(label, placeholder string, opts ...tea.ProgramOption) (string, error) {
	final, err := tea.NewProgram(secretModel{input: components.NewSecretInput(label, placeholder)}, opts...).Run()
	if err != nil {
		return "", err
	}
	m := final.(secretModel)
	if m.aborted || !m.input.Submitted() {
		return "", ErrAborted
	}
	return m.input.Value(), nil
}
