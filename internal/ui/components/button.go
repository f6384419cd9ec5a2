package components

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnpath/internal/ui/theme"
)

// Button is a styled button component. A disabled button renders dimmed
// and ignores key presses.
type Button struct {
	Label    string
	Active   bool
	Disabled bool
	OnPress  func() tea.Cmd
}

// NewButton creates a new button.
func NewButton(label string, active bool, onPress func() tea.Cmd) Button {
	return Button{
		Label:   label,
		Active:  active,
		OnPress: onPress,
	}
}

// Update handles key events.
func (b Button) Update(msg tea.Msg) (Button, tea.Cmd) {
	if !b.Active || b.Disabled {
		return b, nil
	}

	if kmsg, ok := msg.(tea.KeyPressMsg); ok {
		if kmsg.String() == "enter" && b.OnPress != nil {
			return b, b.OnPress()
		}
	}

	return b, nil
}

// View renders the button.
func (b Button) View() string {
	switch {
	case b.Disabled:
		return theme.ButtonDisabled.Render("    " + b.Label + " ")
	case b.Active:
		return theme.ButtonActive.Render("  ▸ " + b.Label + " ")
	default:
		return theme.ButtonInactive.Render("    " + b.Label + " ")
	}
}
