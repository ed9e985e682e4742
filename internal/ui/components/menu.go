package components

import (
	tea "charm.land/bubbletea/v2"

	"github.com/theanmol-raj/qnagen/internal/ui/theme"
)

// Picker is a vertical single-choice list.
type Picker struct {
	Title    string
	Items    []string
	Selected int
	chosen   bool
}

// NewPicker creates a picker with the cursor on the item at index initial.
func NewPicker(title string, items []string, initial int) Picker {
	if initial < 0 || initial >= len(items) {
		initial = 0
	}
	return Picker{Title: title, Items: items, Selected: initial}
}

// Update handles keyboard navigation.
func (m Picker) Update(msg tea.Msg) (Picker, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch kmsg.String() {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Items)-1 {
			m.Selected++
		}
	case "enter":
		if len(m.Items) > 0 {
			m.chosen = true
		}
	}

	return m, nil
}

// Chosen returns the confirmed index once enter was pressed.
func (m Picker) Chosen() (int, bool) {
	return m.Selected, m.chosen
}

// View renders the list.
func (m Picker) View() string {
	var s string
	if m.Title != "" {
		s += theme.Title.Render(m.Title) + "\n\n"
	}
	for i, item := range m.Items {
		if i == m.Selected {
			s += theme.Selected.Render("  ▸ "+item) + "\n"
		} else {
			s += theme.Unselected.Render("    "+item) + "\n"
		}
	}
	return s
}
