package materials

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnpath/internal/progress"
	"github.com/abhisek/learnpath/internal/ui/components"
	"github.com/abhisek/learnpath/internal/ui/theme"
)

func renderCentered(width int, text string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("\n\n" + text)
}

func rule(width int) string {
	if width < 5 {
		return ""
	}
	return theme.Rule.Render(strings.Repeat("─", width-4))
}

func (s *Screen) renderProgress(width int) string {
	barWidth := min(width-4, 60)
	if !s.snap.MasteryLoaded {
		return theme.Hint.Render("  Mastery not available")
	}
	bar := components.NewProgressBar("  Mastery", s.snap.Progress, true, barWidth).View()
	detail := theme.Hint.Render(fmt.Sprintf("  %d of %d objectives mastered · %.0f%% of subtopics visited",
		s.snap.MasteredCount, s.snap.ObjectiveCount, s.snap.Coverage))
	return bar + "\n" + detail
}

func (s *Screen) renderContent(width, height int) string {
	var b strings.Builder

	title := "  " + s.lessonTitle()
	b.WriteString(theme.Heading.Render(title))
	b.WriteString("\n")
	b.WriteString(rule(width))
	b.WriteString("\n\n")

	if s.snap.ShowObjectives {
		b.WriteString(s.renderObjectives())
		b.WriteString("\n")
	}

	switch {
	case s.snap.NoContent:
		b.WriteString(renderCentered(width, "No content available for this subtopic yet."))
	case s.snap.Page == nil && s.snap.Busy:
		b.WriteString(renderCentered(width, "Loading page..."))
	case s.snap.Page == nil:
		b.WriteString(renderCentered(width, "This page has no content."))
	default:
		body := lipgloss.NewStyle().Width(width - 6).Foreground(theme.Text)
		for _, block := range s.snap.Page.Blocks {
			b.WriteString("  ")
			b.WriteString(body.Render(block.Content))
			b.WriteString("\n\n")
		}
	}

	if s.snap.PageCount > 0 {
		nav := lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render(fmt.Sprintf("%s   page %d of %d", s.pages.View(), s.snap.PageOrdinal+1, s.snap.PageCount))
		b.WriteString(nav)
	}
	if s.snap.OnLastPage {
		b.WriteString("\n\n")
		b.WriteString(components.NewButton("Take the lesson quiz (c)", true, nil).View())
	}
	return b.String()
}

func (s *Screen) renderObjectives() string {
	var b strings.Builder
	b.WriteString(theme.Heading.Render("  Learning objectives"))
	b.WriteString("\n")
	for _, o := range s.snap.Objectives {
		mark, style := "○", theme.NotMastered
		if o.Status == progress.StatusMastered {
			mark, style = "●", theme.Mastered
		}
		b.WriteString("   ")
		b.WriteString(style.Render(mark))
		b.WriteString(" ")
		b.WriteString(theme.Body.Render(o.Objective.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Screen) lessonTitle() string {
	if s.snap.ActiveLesson >= 0 && s.snap.ActiveLesson < len(s.snap.Lessons) {
		return s.snap.Lessons[s.snap.ActiveLesson].Title
	}
	return s.snap.CourseTitle
}

func (s *Screen) renderQuiz(width int) string {
	var b strings.Builder
	b.WriteString(theme.Heading.Render("  " + s.snap.QuizID))
	b.WriteString("\n")
	b.WriteString(rule(width))
	b.WriteString("\n\n")
	b.WriteString(theme.Body.Render("  Answer the quiz for " + s.lessonTitle() + "."))
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render("  Press Enter when you have submitted it to see your result."))
	return b.String()
}

func (s *Screen) renderResult(width int) string {
	var b strings.Builder
	b.WriteString(theme.Heading.Render("  " + s.snap.QuizID))
	b.WriteString("\n")
	b.WriteString(rule(width))
	b.WriteString("\n\n")

	r := s.snap.QuizResult
	if r == nil {
		b.WriteString(renderCentered(width, "No result yet."))
		return b.String()
	}

	verdict := theme.Incorrect.Render("Not passed yet")
	if r.Passed {
		verdict = theme.Correct.Render("Passed!")
	}
	b.WriteString(fmt.Sprintf("  %s  %s\n\n", verdict,
		theme.Body.Render(fmt.Sprintf("Score: %d / %d", r.Score, r.TotalQuestions))))

	ids := make([]string, 0, len(r.Results))
	for id := range r.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		mark := theme.Incorrect.Render("✗")
		if r.Results[id] {
			mark = theme.Correct.Render("✓")
		}
		text := id
		for _, q := range r.Questions {
			if q.ID == id {
				text = q.Text
				break
			}
		}
		b.WriteString(fmt.Sprintf("   %s %s\n", mark, theme.Body.Render(text)))
	}
	b.WriteString("\n")
	b.WriteString(s.results.View())
	return b.String()
}

func (s *Screen) renderExam(width int) string {
	var b strings.Builder
	b.WriteString(theme.Title.Width(width).Render(s.snap.ExamTitle))
	b.WriteString("\n")
	b.WriteString(rule(width))
	b.WriteString("\n\n")
	if s.snap.AllLessonsCompleted {
		b.WriteString(theme.Body.Render("  All lessons completed. Good luck!"))
	} else {
		b.WriteString(theme.Body.Render("  The final exam covers every lesson in this course."))
	}
	return b.String()
}

func (s *Screen) renderStatus(width int) string {
	var lines []string
	if s.snap.Err != nil {
		lines = append(lines, theme.ErrorText.Render("  ⚠ "+s.snap.Err.Error()+"  (r to retry)"))
	}
	if s.notice != "" {
		lines = append(lines, theme.Hint.Render("  "+s.notice))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n\n" + lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
