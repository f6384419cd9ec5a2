package materials

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/courseapi"
	"github.com/abhisek/learnpath/internal/progression"
	"github.com/abhisek/learnpath/internal/router"
	"github.com/abhisek/learnpath/internal/screens/preassessment"
)

// stubSource is an in-memory courseapi.Source.
type stubSource struct {
	mu          sync.Mutex
	courseFails int
	noSyllabus  bool
	attempts    []course.PreassessmentAttempt
}

func (f *stubSource) Course(_ context.Context, id string) (*course.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.courseFails > 0 {
		f.courseFails--
		return nil, errors.New("backend unavailable")
	}
	if f.noSyllabus {
		return &course.Course{ID: id, Title: "Fractions"}, nil
	}
	return &course.Course{
		ID:    id,
		Title: "Fractions",
		Syllabus: &course.Syllabus{Lessons: []course.Lesson{
			{ID: "L2", Title: "Adding fractions", Order: 2, Topics: []course.Topic{
				{ID: "T2", Title: "Like denominators", Subtopics: []course.Subtopic{{ID: "sub-2", Title: "Same bottom"}}},
			}},
			{ID: "L1", Title: "What is a fraction", Order: 1, Topics: []course.Topic{
				{ID: "T1", Title: "Parts of a whole", Subtopics: []course.Subtopic{{ID: "sub-1", Title: "Halves"}}},
			}},
		}},
	}, nil
}

func (f *stubSource) Pages(_ context.Context, subtopicID string, _ course.Role, _ string) (*courseapi.PagesResponse, error) {
	if subtopicID != "sub-1" {
		return &courseapi.PagesResponse{}, nil
	}
	return &courseapi.PagesResponse{
		Pages: []course.Page{
			{ID: "p-2", Number: 2, Blocks: []course.ContentBlock{{Content: "A quarter is one of four parts."}}},
			{ID: "p-1", Number: 1, Blocks: []course.ContentBlock{{Content: "A half is one of two parts."}}},
		},
		Objectives: []course.LearningObjective{{ID: 1, Text: "Name the numerator"}},
	}, nil
}

func (f *stubSource) Page(_ context.Context, id string) (*course.Page, error) {
	text := map[string]string{"p-1": "A half is one of two parts.", "p-2": "A quarter is one of four parts."}[id]
	return &course.Page{ID: id, Blocks: []course.ContentBlock{{Content: text}}}, nil
}

func (f *stubSource) Mastery(context.Context, string) ([]course.MasteryRecord, error) {
	return []course.MasteryRecord{{ObjectiveID: 1, Level: 80}, {ObjectiveID: 2, Level: 20}}, nil
}

func (f *stubSource) PreassessmentAttempts(context.Context, string, string) ([]course.PreassessmentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts, nil
}

func (f *stubSource) QuizResult(_ context.Context, quizID, _ string) (*course.QuizResult, error) {
	return &course.QuizResult{Score: 3, TotalQuestions: 4, Passed: true, Results: map[string]bool{"q1": true, "q2": false}}, nil
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

// drive runs cmd and feeds resulting messages back into the screen until
// nothing is left. Router messages are returned instead of delivered.
func drive(t *testing.T, s *Screen, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var routed []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case router.PushScreenMsg, router.PopScreenMsg:
			routed = append(routed, msg)
		default:
			_, next := s.Update(msg)
			queue = append(queue, next)
		}
	}
	return routed
}

func press(t *testing.T, s *Screen, msg tea.KeyPressMsg) []tea.Msg {
	t.Helper()
	_, cmd := s.Update(msg)
	return drive(t, s, cmd)
}

func newTestScreen(t *testing.T, src *stubSource) *Screen {
	t.Helper()
	ctrl := progression.New(src, progression.Config{
		CourseID:         "c1",
		StudentID:        "stu-1",
		Role:             course.RoleStudent,
		PreassessmentURL: "https://learn.example.com/pre",
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	s := New(ctrl, nil)
	drive(t, s, s.Init())
	return s
}

func TestInitShowsSyllabus(t *testing.T) {
	s := newTestScreen(t, &stubSource{})

	if s.Title() != "Syllabus" {
		t.Errorf("Title = %q, want Syllabus", s.Title())
	}
	view := s.View(100, 30)
	for _, want := range []string{"WHAT IS A FRACTION", "Halves", "Lesson 1 Quiz", "50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("syllabus view missing %q", want)
		}
	}
	// Lessons are ordered, so the cursor starts on the first lesson's subtopic.
	if r := s.rows[s.cursor]; r.kind != rowSubtopic || r.subtopic != "sub-1" {
		t.Errorf("cursor row = %+v, want sub-1", r)
	}
	if h := s.Header(); !h.Known || h.Progress != 50 || h.Course != "Fractions" {
		t.Errorf("header = %+v", h)
	}
}

func TestOpenSubtopicAndPage(t *testing.T) {
	s := newTestScreen(t, &stubSource{})

	press(t, s, specialKey(tea.KeyEnter))
	if s.snap.View != progression.ViewLessonContent {
		t.Fatalf("view = %v, want lesson-content", s.snap.View)
	}
	view := s.View(100, 30)
	if !strings.Contains(view, "A half is one of two parts.") {
		t.Errorf("first page not shown:\n%s", view)
	}
	if !strings.Contains(view, "Learning objectives") {
		t.Error("objectives panel missing on first page")
	}
	if !s.visited["sub-1"] {
		t.Error("sub-1 not marked visited")
	}

	press(t, s, specialKey(tea.KeyRight))
	if s.snap.PageOrdinal != 1 || s.pages.Page != 1 {
		t.Fatalf("ordinal = %d, paginator = %d, want 1", s.snap.PageOrdinal, s.pages.Page)
	}
	view = s.View(100, 30)
	if !strings.Contains(view, "A quarter is one of four parts.") {
		t.Errorf("second page not shown:\n%s", view)
	}
	if strings.Contains(view, "Learning objectives") {
		t.Error("objectives panel shown past the first page")
	}

	// Right on the last page is a no-op.
	if _, cmd := s.Update(specialKey(tea.KeyRight)); cmd != nil {
		t.Error("expected no cmd past the last page")
	}
}

func TestCompleteLessonQuizAndResult(t *testing.T) {
	s := newTestScreen(t, &stubSource{})
	press(t, s, specialKey(tea.KeyEnter))

	press(t, s, keyPress('c'))
	if s.snap.View != progression.ViewLessonContent {
		t.Fatalf("complete before last page changed view to %v", s.snap.View)
	}
	if !strings.Contains(s.notice, "last page") {
		t.Errorf("notice = %q", s.notice)
	}

	press(t, s, specialKey(tea.KeyRight))
	press(t, s, specialKey(tea.KeyEnter))
	if s.snap.View != progression.ViewQuiz || s.snap.QuizID != "Lesson 1 Quiz" {
		t.Fatalf("view = %v quiz = %q", s.snap.View, s.snap.QuizID)
	}

	press(t, s, specialKey(tea.KeyEnter))
	if s.snap.View != progression.ViewQuizResult {
		t.Fatalf("view = %v, want quiz-result", s.snap.View)
	}
	view := s.View(100, 30)
	if !strings.Contains(view, "Score: 3 / 4") || !strings.Contains(view, "Passed!") {
		t.Errorf("result view:\n%s", view)
	}

	// First menu item after a pass is "Next lesson".
	press(t, s, specialKey(tea.KeyEnter))
	if s.snap.View != progression.ViewQuiz || s.snap.QuizID != "Lesson 2 Quiz" {
		t.Errorf("after next lesson: view = %v quiz = %q", s.snap.View, s.snap.QuizID)
	}
}

func TestEscReturnsToSyllabus(t *testing.T) {
	s := newTestScreen(t, &stubSource{})
	press(t, s, specialKey(tea.KeyEnter))
	press(t, s, specialKey(tea.KeyEscape))

	if s.snap.View != progression.ViewSyllabus {
		t.Errorf("view = %v, want syllabus", s.snap.View)
	}
	if s.snap.PageCount != 0 {
		t.Errorf("pages not cleared: %d", s.snap.PageCount)
	}
}

func TestGateClosedHandsOffToPreassessment(t *testing.T) {
	s := newTestScreen(t, &stubSource{})

	press(t, s, keyPress('e'))
	if s.snap.View != progression.ViewSyllabus {
		t.Fatalf("exam opened with closed gate")
	}
	if !strings.Contains(s.notice, "preassessment") {
		t.Errorf("notice = %q", s.notice)
	}

	s.cursor = len(s.rows) - 1
	routed := press(t, s, specialKey(tea.KeyEnter))
	if len(routed) != 1 {
		t.Fatalf("routed = %v, want one push", routed)
	}
	push, ok := routed[0].(router.PushScreenMsg)
	if !ok {
		t.Fatalf("routed[0] = %T", routed[0])
	}
	pre, ok := push.Screen.(*preassessment.Screen)
	if !ok {
		t.Fatalf("pushed %T", push.Screen)
	}
	if !strings.Contains(pre.View(100, 30), "course_id=c1") {
		t.Error("preassessment link missing course id")
	}
}

func TestResumeReopensGate(t *testing.T) {
	src := &stubSource{}
	s := newTestScreen(t, src)
	if s.snap.Gate.ExamOpen() {
		t.Fatal("gate open before any attempt")
	}

	src.mu.Lock()
	src.attempts = []course.PreassessmentAttempt{{ID: 1, Score: 9, TotalQuestions: 10}}
	src.mu.Unlock()

	drive(t, s, s.Resume())
	if !s.snap.Gate.ExamOpen() {
		t.Fatal("gate still closed after resume")
	}

	press(t, s, keyPress('e'))
	if s.snap.View != progression.ViewExam || s.Title() != "Fractions" {
		t.Errorf("view = %v title = %q", s.snap.View, s.Title())
	}
}

func TestLoadFailureAndRetry(t *testing.T) {
	s := newTestScreen(t, &stubSource{courseFails: 1})

	if s.snap.Err == nil {
		t.Fatal("expected load error in snapshot")
	}
	if !strings.Contains(s.View(100, 30), "r to retry") {
		t.Error("retry hint missing")
	}
	hints := s.KeyHints()
	if last := hints[len(hints)-1]; last.Key != "r" {
		t.Errorf("last hint = %+v, want retry", last)
	}

	press(t, s, keyPress('r'))
	if s.snap.Err != nil || !s.snap.Loaded {
		t.Errorf("after retry: err = %v loaded = %v", s.snap.Err, s.snap.Loaded)
	}
}

func TestEmptySyllabusStillOffersGate(t *testing.T) {
	t.Run("gate closed", func(t *testing.T) {
		s := newTestScreen(t, &stubSource{noSyllabus: true})

		if len(s.rows) != 1 || s.rows[0].kind != rowGate {
			t.Fatalf("rows = %+v, want only the gate row", s.rows)
		}
		view := s.View(100, 30)
		for _, want := range []string{"no lessons yet", "Take the preassessment", "Mastery"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}
		if strings.Contains(view, "Take exam") {
			t.Error("exam offered while the gate is closed")
		}

		routed := press(t, s, specialKey(tea.KeyEnter))
		if len(routed) != 1 {
			t.Fatalf("routed = %v, want one push", routed)
		}
		if push, ok := routed[0].(router.PushScreenMsg); !ok {
			t.Errorf("routed[0] = %T", routed[0])
		} else if _, ok := push.Screen.(*preassessment.Screen); !ok {
			t.Errorf("pushed %T", push.Screen)
		}
	})

	t.Run("gate open", func(t *testing.T) {
		src := &stubSource{
			noSyllabus: true,
			attempts:   []course.PreassessmentAttempt{{ID: 1, Score: 9, TotalQuestions: 10}},
		}
		s := newTestScreen(t, src)

		view := s.View(100, 30)
		if !strings.Contains(view, "Take exam: Fractions") {
			t.Errorf("exam control missing:\n%s", view)
		}
		if strings.Contains(view, "Take the preassessment") {
			t.Error("preassessment offered while the gate is open")
		}

		press(t, s, specialKey(tea.KeyEnter))
		if s.snap.View != progression.ViewExam {
			t.Errorf("view = %v, want exam", s.snap.View)
		}
	})
}
