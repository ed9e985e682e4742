package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/theanmol-raj/qnagen/internal/ui/theme"
)

// SecretInput is a masked single-line input for API keys.
type SecretInput struct {
	Label     string
	Model     textinput.Model
	submitted bool
}

// NewSecretInput creates a focused, masked input.
func NewSecretInput(label, placeholder string) SecretInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Focus()

	return SecretInput{Label: label, Model: ti}
}

// Init returns the initial command.
func (t SecretInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages. Enter submits a non-blank value.
func (t SecretInput) Update(msg tea.Msg) (SecretInput, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok && kmsg.String() == "enter" {
		if t.Value() != "" {
			t.submitted = true
		}
		return t, nil
	}

	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the label and the masked input.
func (t SecretInput) View() string {
	view := theme.Title.Render(t.Label) + "\n\n" + t.Model.View() + "\n"
	if t.submitted {
		view += theme.OK.Render("✓") + "\n"
	}
	return view
}

// Value returns the trimmed input value.
func (t SecretInput) Value() string {
	return strings.TrimSpace(t.Model.Value())
}

// Submitted reports whether the user confirmed the value.
func (t SecretInput) Submitted() bool {
	return t.submitted
}
