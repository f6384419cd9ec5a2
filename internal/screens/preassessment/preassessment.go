// Package preassessment is the hand-off screen for the external
// preassessment. It shows where to take it, the learner's latest result and
// whether the exam is unlocked.
package preassessment

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnpath/internal/progress"
	"github.com/abhisek/learnpath/internal/progression"
	"github.com/abhisek/learnpath/internal/router"
	"github.com/abhisek/learnpath/internal/screen"
	"github.com/abhisek/learnpath/internal/ui/layout"
	"github.com/abhisek/learnpath/internal/ui/theme"
)

// GateChecker re-derives the exam gate.
type GateChecker interface {
	Snapshot() progression.Snapshot
	RefreshGate(ctx context.Context) error
}

// gateCheckedMsg is sent when a gate refresh returns.
type gateCheckedMsg struct {
	Err error
}

// Screen shows the preassessment link and the latest attempt.
type Screen struct {
	gate     GateChecker
	target   progression.PreassessmentTarget
	snap     progression.Snapshot
	checking bool
	errMsg   string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the preassessment screen.
func New(gate GateChecker, target progression.PreassessmentTarget) *Screen {
	return &Screen{
		gate:   gate,
		target: target,
		snap:   gate.Snapshot(),
	}
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Title() string {
	return "Preassessment"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "r", Description: "I've finished, check again"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case gateCheckedMsg:
		s.checking = false
		s.snap = s.gate.Snapshot()
		s.errMsg = ""
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		}
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "r":
			if s.checking {
				return s, nil
			}
			s.checking = true
			return s, s.check()
		case "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *Screen) check() tea.Cmd {
	return func() tea.Msg {
		return gateCheckedMsg{Err: s.gate.RefreshGate(context.Background())}
	}
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Width(width).Render("Before the final exam"))
	b.WriteString("\n\n")

	if s.snap.Gate.ExamOpen() {
		b.WriteString(theme.Correct.Render("  ✓ The exam is unlocked. Press Esc to return to the syllabus."))
		b.WriteString("\n\n")
	} else {
		b.WriteString(theme.Body.Render("  Take the preassessment to unlock the final exam:"))
		b.WriteString("\n\n")
		link := s.target.URL
		if link == "" {
			link = fmt.Sprintf("course %s, student %s (ask your teacher for the link)", s.target.CourseID, s.target.StudentID)
		}
		b.WriteString("    ")
		b.WriteString(theme.Link.Render(link))
		b.WriteString("\n\n")
	}

	if a := s.snap.LatestAttempt; a != nil {
		c := progress.ClassifyPreassessment(a.Score, a.TotalQuestions)
		style := theme.NotMastered
		if c.Tier != progress.TierFailed {
			style = theme.Mastered
		}
		b.WriteString(theme.Heading.Render("  Latest attempt"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("   %s  %s\n",
			style.Render(fmt.Sprintf("%d / %d (%.0f%%)", a.Score, a.TotalQuestions, c.Percent)),
			theme.Body.Render(c.Message)))
		if !a.TakenAt.IsZero() {
			b.WriteString(theme.Hint.Render("   taken " + a.TakenAt.Local().Format("Jan 2, 2006 15:04")))
			b.WriteString("\n")
		}
		if a.Feedback != "" {
			fb := lipgloss.NewStyle().Width(width - 8).Foreground(theme.Text).Render(a.Feedback)
			b.WriteString("\n")
			b.WriteString(theme.Card.Render(fb))
			b.WriteString("\n")
		}
	}

	switch {
	case s.checking:
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("  Checking..."))
	case s.errMsg != "":
		b.WriteString("\n")
		b.WriteString(theme.ErrorText.Render("  ⚠ " + s.errMsg))
	}
	return b.String()
}
