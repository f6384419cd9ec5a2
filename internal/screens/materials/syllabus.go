package materials

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/ui/theme"
)

type rowKind int

const (
	rowLessonHeader rowKind = iota
	rowTopicHeader
	rowSubtopic
	rowQuiz
	rowGate
)

type row struct {
	kind     rowKind
	lesson   int
	title    string
	subtopic string
	done     bool
}

func (r row) selectable() bool {
	return r.kind == rowSubtopic || r.kind == rowQuiz || r.kind == rowGate
}

// buildRows flattens the ordered lessons into syllabus rows: each lesson's
// topics and subtopics followed by its quiz, then the exam gate. The gate
// row is always present, even for a course without lessons.
func buildRows(lessons []course.Lesson) []row {
	var rows []row
	for i, l := range lessons {
		rows = append(rows, row{kind: rowLessonHeader, lesson: i, title: l.Title, done: l.Completed})
		for _, t := range l.Topics {
			rows = append(rows, row{kind: rowTopicHeader, lesson: i, title: t.Title})
			for _, st := range t.Subtopics {
				rows = append(rows, row{kind: rowSubtopic, lesson: i, title: st.Title, subtopic: st.ID})
			}
		}
		rows = append(rows, row{kind: rowQuiz, lesson: i, title: l.QuizID, done: l.Completed})
	}
	return append(rows, row{kind: rowGate, lesson: -1})
}

// moveCursor moves the cursor by delta, skipping headers.
func (s *Screen) moveCursor(delta int) {
	next := s.cursor + delta
	for next >= 0 && next < len(s.rows) {
		if s.rows[next].selectable() {
			s.cursor = next
			return
		}
		next += delta
	}
}

// resetCursor puts the cursor on the first selectable row at or after from.
func (s *Screen) resetCursor(from int) {
	if from >= len(s.rows) {
		from = len(s.rows) - 1
	}
	for i := max(from, 0); i < len(s.rows); i++ {
		if s.rows[i].selectable() {
			s.cursor = i
			return
		}
	}
	for i := from; i >= 0; i-- {
		if s.rows[i].selectable() {
			s.cursor = i
			return
		}
	}
	s.cursor = 0
}

// adjustScroll ensures the cursor is visible within the viewport.
func (s *Screen) adjustScroll(height int) {
	if height <= 0 {
		return
	}
	headerRow := s.cursor
	for headerRow > 0 && !s.rows[headerRow-1].selectable() {
		headerRow--
	}
	if headerRow < s.scrollOffset {
		s.scrollOffset = headerRow
	}
	if s.cursor >= s.scrollOffset+height {
		s.scrollOffset = s.cursor - height + 1
	}
}

func (s *Screen) renderSyllabus(width, height int) string {
	if !s.snap.Loaded {
		return renderCentered(width, "Loading course...")
	}

	var b strings.Builder
	b.WriteString(s.renderProgress(width))
	b.WriteString("\n\n")

	listHeight := height - 3
	if len(s.snap.Lessons) == 0 {
		b.WriteString(theme.Hint.Render("  This course has no lessons yet."))
		b.WriteString("\n\n")
		listHeight -= 2
	}
	s.adjustScroll(listHeight)

	var lines []string
	for i, r := range s.rows {
		if i < s.scrollOffset {
			continue
		}
		if len(lines) >= listHeight {
			break
		}
		lines = append(lines, s.renderRow(r, i == s.cursor, width))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func (s *Screen) renderRow(r row, selected bool, width int) string {
	switch r.kind {
	case rowLessonHeader:
		mark := ""
		if r.done {
			mark = "  ✓"
		}
		return lipgloss.NewStyle().
			Foreground(theme.Secondary).
			Bold(true).
			Width(width).
			Padding(1, 0, 0, 2).
			Render(strings.ToUpper(r.title) + mark)
	case rowTopicHeader:
		return lipgloss.NewStyle().Foreground(theme.TextDim).Render("    " + r.title)
	}

	label := r.title
	icon := "·"
	switch r.kind {
	case rowQuiz:
		icon = "?"
		if r.done {
			icon = "✓"
		}
	case rowGate:
		label, icon = s.gateLabel()
	}

	prefix := "      "
	style := theme.Unselected
	if selected {
		prefix = "    ▸ "
		style = theme.Selected
	}
	if s.visited[r.subtopic] && r.kind == rowSubtopic {
		icon = "✓"
	}
	return style.Render(fmt.Sprintf("%s%s %s", prefix, icon, label))
}

func (s *Screen) gateLabel() (label, icon string) {
	switch {
	case !s.snap.GateKnown:
		return "Checking exam eligibility...", "…"
	case s.snap.Gate.ExamOpen():
		return "Take exam: " + s.snap.ExamTitle, "★"
	default:
		return "Take the preassessment to unlock the exam", "⚑"
	}
}
