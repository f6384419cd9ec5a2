// Package materials is the course screen: syllabus, lesson pages, quizzes
// and the final exam, driven by a progression controller.
package materials

import (
	"context"
	"errors"
	"log/slog"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/paginator"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnpath/internal/pager"
	"github.com/abhisek/learnpath/internal/progression"
	"github.com/abhisek/learnpath/internal/router"
	"github.com/abhisek/learnpath/internal/screen"
	"github.com/abhisek/learnpath/internal/screens/preassessment"
	"github.com/abhisek/learnpath/internal/ui/components"
	"github.com/abhisek/learnpath/internal/ui/layout"
)

// Controller is the progression state machine the screen drives.
type Controller interface {
	Snapshot() progression.Snapshot
	Load(ctx context.Context) error
	Retry(ctx context.Context) error
	RefreshMastery(ctx context.Context) error
	RefreshGate(ctx context.Context) error

	SelectSubtopic(ctx context.Context, subtopicID string) error
	GoToPage(ctx context.Context, ordinal int) error
	CompleteLesson(ctx context.Context) error
	TakeQuiz(ctx context.Context, lessonIndex int) error
	TakeExam(ctx context.Context) error
	StartPreassessment(ctx context.Context) (progression.PreassessmentTarget, error)
	BackToSyllabus(ctx context.Context) error
	ResultsAvailable(ctx context.Context) error
	TryAgain(ctx context.Context) error
	NextLesson(ctx context.Context) error
}

// Screen renders the controller's current view and turns key presses into
// transitions. Every transition runs as a tea.Cmd.
type Screen struct {
	ctrl   Controller
	logger *slog.Logger

	snap         progression.Snapshot
	rows         []row
	cursor       int
	scrollOffset int
	visited      map[string]bool

	pages   paginator.Model
	results components.Menu
	notice  string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.Resumer = (*Screen)(nil)

// New creates the materials screen for ctrl.
func New(ctrl Controller, logger *slog.Logger) *Screen {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Screen{
		ctrl:    ctrl,
		logger:  logger,
		visited: make(map[string]bool),
		pages:   paginator.New(paginator.WithPerPage(1)),
	}
	s.pages.Type = paginator.Dots
	s.refresh()
	return s
}

func (s *Screen) Init() tea.Cmd {
	return s.run("load", s.ctrl.Load)
}

// Resume re-checks the gate and mastery when the learner comes back from
// the preassessment screen.
func (s *Screen) Resume() tea.Cmd {
	cmds := []tea.Cmd{s.run("refresh gate", s.ctrl.RefreshGate)}
	if s.snap.MasteryLoaded {
		cmds = append(cmds, s.run("refresh mastery", s.ctrl.RefreshMastery))
	}
	return tea.Batch(cmds...)
}

func (s *Screen) Title() string {
	switch s.snap.View {
	case progression.ViewLessonContent:
		return "Lesson"
	case progression.ViewQuiz:
		return "Quiz"
	case progression.ViewQuizResult:
		return "Quiz Result"
	case progression.ViewExam:
		return s.snap.ExamTitle
	default:
		return "Syllabus"
	}
}

// Header returns what the app header shows for this screen.
func (s *Screen) Header() layout.HeaderInfo {
	return layout.HeaderInfo{
		Course:   s.snap.CourseTitle,
		Progress: s.snap.Progress,
		Known:    s.snap.MasteryLoaded,
		Busy:     s.snap.Busy,
	}
}

// KeyHints returns the key binding hints for the footer.
func (s *Screen) KeyHints() []layout.KeyHint {
	var hints []layout.KeyHint
	switch s.snap.View {
	case progression.ViewSyllabus:
		hints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Open"},
			{Key: "m", Description: "Refresh mastery"},
		}
	case progression.ViewLessonContent:
		hints = []layout.KeyHint{
			{Key: "←→", Description: "Page"},
			{Key: "Esc", Description: "Syllabus"},
		}
		if s.snap.OnLastPage {
			hints = append(hints, layout.KeyHint{Key: "c", Description: "Take quiz"})
		}
	case progression.ViewQuiz:
		hints = []layout.KeyHint{
			{Key: "Enter", Description: "Show results"},
			{Key: "Esc", Description: "Syllabus"},
		}
	case progression.ViewQuizResult:
		hints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
		}
	case progression.ViewExam:
		hints = []layout.KeyHint{
			{Key: "n", Description: "Continue"},
			{Key: "Esc", Description: "Syllabus"},
		}
	}
	if s.snap.Err != nil {
		hints = append(hints, layout.KeyHint{Key: "r", Description: "Retry"})
	}
	return hints
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case opDoneMsg:
		s.handleOpDone(msg)
		return s, nil

	case preassessmentMsg:
		return s, s.handlePreassessment(msg)

	case tea.KeyPressMsg:
		return s, s.handleKey(msg)
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	var body string
	switch s.snap.View {
	case progression.ViewLessonContent:
		body = s.renderContent(width, height)
	case progression.ViewQuiz:
		body = s.renderQuiz(width)
	case progression.ViewQuizResult:
		body = s.renderResult(width)
	case progression.ViewExam:
		body = s.renderExam(width)
	default:
		body = s.renderSyllabus(width, height-2)
	}
	return body + s.renderStatus(width)
}

// run wraps a controller operation in a tea.Cmd.
func (s *Screen) run(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{Op: op, Err: fn(context.Background())}
	}
}

func (s *Screen) handleOpDone(msg opDoneMsg) {
	prev := s.snap.View
	s.refresh()

	switch {
	case msg.Err == nil:
		s.notice = ""
		if msg.Op == "open subtopic" && s.snap.SubtopicID != "" {
			s.visited[s.snap.SubtopicID] = true
		}
	case errors.Is(msg.Err, progression.ErrSuperseded):
		// A newer operation replaced this one.
	case errors.Is(msg.Err, progression.ErrGateClosed):
		s.notice = "Complete the preassessment to unlock the exam."
	case errors.Is(msg.Err, progression.ErrNotLastPage):
		s.notice = "Finish the last page before taking the quiz."
	case errors.Is(msg.Err, pager.ErrNoPage):
		s.notice = "This page has no content."
	case progression.IsInvalidTransition(msg.Err):
		s.logger.Debug("transition rejected", "op", msg.Op, "error", msg.Err)
	default:
		if s.snap.Err == nil {
			s.notice = msg.Err.Error()
		}
	}

	if prev != s.snap.View {
		s.scrollOffset = 0
		if s.snap.View == progression.ViewQuizResult {
			s.results = s.resultMenu()
		}
	}
}

func (s *Screen) handlePreassessment(msg preassessmentMsg) tea.Cmd {
	s.refresh()
	if msg.Err != nil {
		if progression.IsInvalidTransition(msg.Err) {
			s.notice = "The exam is already unlocked."
		}
		return nil
	}
	next := preassessment.New(s.ctrl, msg.Target)
	return func() tea.Msg {
		return router.PushScreenMsg{Screen: next}
	}
}

// refresh re-reads the controller and rebuilds derived widgets.
func (s *Screen) refresh() {
	s.snap = s.ctrl.Snapshot()
	s.rows = buildRows(s.snap.Lessons)
	s.resetCursor(s.cursor)

	total := s.snap.PageCount
	if total < 1 {
		total = 1
	}
	s.pages.TotalPages = total
	s.pages.Page = min(s.snap.PageOrdinal, total-1)
}

func (s *Screen) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if msg.String() == "r" && s.snap.Err != nil {
		s.notice = ""
		return s.run("retry", s.ctrl.Retry)
	}

	switch s.snap.View {
	case progression.ViewSyllabus:
		return s.syllabusKey(msg)
	case progression.ViewLessonContent:
		return s.contentKey(msg)
	case progression.ViewQuiz:
		switch msg.String() {
		case "enter":
			return s.run("quiz results", s.ctrl.ResultsAvailable)
		case "esc":
			return s.run("back", s.ctrl.BackToSyllabus)
		}
	case progression.ViewQuizResult:
		var cmd tea.Cmd
		s.results, cmd = s.results.Update(msg)
		return cmd
	case progression.ViewExam:
		switch msg.String() {
		case "n":
			return s.run("next lesson", s.ctrl.NextLesson)
		case "esc":
			return s.run("back", s.ctrl.BackToSyllabus)
		}
	}
	return nil
}

func (s *Screen) syllabusKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		s.moveCursor(-1)
	case "down", "j":
		s.moveCursor(1)
	case "m":
		return s.run("refresh mastery", s.ctrl.RefreshMastery)
	case "e":
		return s.run("exam", s.ctrl.TakeExam)
	case "p":
		return s.startPreassessment()
	case "enter":
		if s.cursor < 0 || s.cursor >= len(s.rows) {
			return nil
		}
		r := s.rows[s.cursor]
		switch r.kind {
		case rowSubtopic:
			id := r.subtopic
			return s.run("open subtopic", func(ctx context.Context) error {
				return s.ctrl.SelectSubtopic(ctx, id)
			})
		case rowQuiz:
			lesson := r.lesson
			return s.run("quiz", func(ctx context.Context) error {
				return s.ctrl.TakeQuiz(ctx, lesson)
			})
		case rowGate:
			if !s.snap.GateKnown {
				return nil
			}
			if s.snap.Gate.ExamOpen() {
				return s.run("exam", s.ctrl.TakeExam)
			}
			return s.startPreassessment()
		}
	}
	return nil
}

func (s *Screen) contentKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.pages.KeyMap.PrevPage):
		if !s.snap.HasPrev {
			return nil
		}
		return s.goToPage(s.snap.PageOrdinal - 1)
	case key.Matches(msg, s.pages.KeyMap.NextPage):
		if !s.snap.HasNext {
			return nil
		}
		return s.goToPage(s.snap.PageOrdinal + 1)
	}

	switch msg.String() {
	case "c", "enter":
		if msg.String() == "enter" && !s.snap.OnLastPage {
			return s.goToPage(s.snap.PageOrdinal + 1)
		}
		return s.run("complete lesson", s.ctrl.CompleteLesson)
	case "esc", "backspace":
		return s.run("back", s.ctrl.BackToSyllabus)
	}
	return nil
}

func (s *Screen) goToPage(ordinal int) tea.Cmd {
	return s.run("page", func(ctx context.Context) error {
		return s.ctrl.GoToPage(ctx, ordinal)
	})
}

func (s *Screen) startPreassessment() tea.Cmd {
	return func() tea.Msg {
		target, err := s.ctrl.StartPreassessment(context.Background())
		return preassessmentMsg{Target: target, Err: err}
	}
}

func (s *Screen) resultMenu() components.Menu {
	last := s.snap.ActiveLesson >= len(s.snap.Lessons)-1
	next := "Next lesson"
	if last {
		next = "Finish course"
	}
	passed := s.snap.QuizResult != nil && s.snap.QuizResult.Passed
	items := []components.MenuItem{
		{Label: next, Action: func() tea.Cmd { return s.run("next lesson", s.ctrl.NextLesson) }},
		{Label: "Try again", Action: func() tea.Cmd { return s.run("try again", s.ctrl.TryAgain) }},
		{Label: "Back to syllabus", Action: func() tea.Cmd { return s.run("back", s.ctrl.BackToSyllabus) }},
	}
	if !passed {
		items[0], items[1] = items[1], items[0]
	}
	return components.NewMenu(items)
}
