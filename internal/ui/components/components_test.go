package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
)

type pressedMsg struct{ label string }

func enterKey() tea.KeyPressMsg { return tea.KeyPressMsg{Code: tea.KeyEnter} }

func TestProgressBarFilled(t *testing.T) {
	tests := []struct {
		percent float64
		want    int
	}{
		{0, 0},
		{50, 10},
		{100, 20},
		{150, 20},
		{-5, 0},
	}
	for _, tt := range tests {
		got := NewProgressBar("", tt.percent, false, 20).Filled(20)
		if got != tt.want {
			t.Errorf("Filled(%v) = %d, want %d", tt.percent, got, tt.want)
		}
	}
}

func TestProgressBarShowsPercent(t *testing.T) {
	view := NewProgressBar("Mastery", 66.7, true, 40).View()
	if !strings.Contains(view, "67%") {
		t.Errorf("view %q missing 67%%", view)
	}
	if !strings.Contains(view, "Mastery") {
		t.Errorf("view %q missing label", view)
	}
}

func TestButtonPress(t *testing.T) {
	b := NewButton("Take Exam", true, func() tea.Cmd {
		return func() tea.Msg { return pressedMsg{"exam"} }
	})
	_, cmd := b.Update(enterKey())
	if cmd == nil {
		t.Fatal("expected cmd from active button")
	}
	if msg, ok := cmd().(pressedMsg); !ok || msg.label != "exam" {
		t.Errorf("msg = %#v", msg)
	}

	b.Disabled = true
	if _, cmd := b.Update(enterKey()); cmd != nil {
		t.Error("disabled button must not fire")
	}
}

func TestMenuSkipsDisabled(t *testing.T) {
	var fired string
	action := func(name string) func() tea.Cmd {
		return func() tea.Cmd { fired = name; return nil }
	}
	m := NewMenu([]MenuItem{
		{Label: "Try again", Action: action("try")},
		{Label: "Locked", Disabled: true},
		{Label: "Back", Action: action("back")},
	})

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if m.Selected != 2 {
		t.Fatalf("Selected = %d, want 2", m.Selected)
	}
	m.Update(enterKey())
	if fired != "back" {
		t.Errorf("fired = %q, want back", fired)
	}
	if !strings.Contains(m.View(), "▸ Back") {
		t.Errorf("view does not mark selection: %q", m.View())
	}
}
