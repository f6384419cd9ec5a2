package progression

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/courseapi"
)

var errBackend = errors.New("backend unavailable")

// fakeSource is an in-memory courseapi.Source with switchable failures.
type fakeSource struct {
	mu sync.Mutex

	course    *course.Course
	courseErr error

	pages    map[string]*courseapi.PagesResponse
	pagesErr error
	// block, when set for a subtopic, holds the Pages call until the
	// channel is closed or the context is cancelled.
	block   map[string]chan struct{}
	started chan string

	pageByID map[string]*course.Page
	pageErr  error

	mastery    []course.MasteryRecord
	masteryErr error

	attempts    []course.PreassessmentAttempt
	attemptsErr error

	results   map[string]*course.QuizResult
	resultErr error

	pagesCalls   int
	lastRole     course.Role
	lastStudent  string
	pageReads    int
	masteryCalls int
}

func (f *fakeSource) Course(ctx context.Context, id string) (*course.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.courseErr != nil {
		return nil, f.courseErr
	}
	return f.course, nil
}

func (f *fakeSource) Pages(ctx context.Context, subtopicID string, role course.Role, studentID string) (*courseapi.PagesResponse, error) {
	f.mu.Lock()
	f.pagesCalls++
	f.lastRole = role
	f.lastStudent = studentID
	wait := f.block[subtopicID]
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- subtopicID
	}
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pagesErr != nil {
		return nil, f.pagesErr
	}
	resp, ok := f.pages[subtopicID]
	if !ok {
		return &courseapi.PagesResponse{}, nil
	}
	return resp, nil
}

func (f *fakeSource) Page(ctx context.Context, pageID string) (*course.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageReads++
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if p, ok := f.pageByID[pageID]; ok {
		return p, nil
	}
	return nil, &courseapi.StatusError{Method: "GET", Path: "/pages/" + pageID, StatusCode: 404}
}

func (f *fakeSource) Mastery(ctx context.Context, studentID string) ([]course.MasteryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.masteryCalls++
	if f.masteryErr != nil {
		return nil, f.masteryErr
	}
	return f.mastery, nil
}

func (f *fakeSource) PreassessmentAttempts(ctx context.Context, studentID, courseID string) ([]course.PreassessmentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attemptsErr != nil {
		return nil, f.attemptsErr
	}
	return f.attempts, nil
}

func (f *fakeSource) QuizResult(ctx context.Context, quizID, studentID string) (*course.QuizResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	if r, ok := f.results[quizID]; ok {
		return r, nil
	}
	return &course.QuizResult{}, nil
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// twoLessonCourse has one topic with one subtopic per lesson, listed out
// of order.
func twoLessonCourse() *course.Course {
	return &course.Course{
		ID:    "c1",
		Title: "Fractions",
		Syllabus: &course.Syllabus{
			ID: "s1",
			Lessons: []course.Lesson{
				{ID: "L2", Title: "Adding", Order: 2, Topics: []course.Topic{
					{ID: "T2", Order: 1, Subtopics: []course.Subtopic{{ID: "sub-2", Title: "Like denominators", Order: 1}}},
				}},
				{ID: "L1", Title: "Basics", Order: 1, Topics: []course.Topic{
					{ID: "T1", Order: 1, Subtopics: []course.Subtopic{{ID: "sub-1", Title: "What is a fraction", Order: 1}}},
				}},
			},
		},
	}
}

func newFake() *fakeSource {
	return &fakeSource{
		course: twoLessonCourse(),
		pages: map[string]*courseapi.PagesResponse{
			"sub-1": {
				Pages: []course.Page{
					{ID: "p-1b", Number: 2},
					{ID: "p-1a", Number: 1},
					{ID: "p-1c", Number: 3},
				},
				Objectives: []course.LearningObjective{
					{ID: 1, Text: "Name a fraction"},
					{ID: 2, Text: "Compare fractions"},
				},
			},
			"sub-2": {
				Pages: []course.Page{{ID: "p-2a", Number: 1}},
			},
		},
		pageByID: map[string]*course.Page{
			"p-1a": {ID: "p-1a", Number: 1, Blocks: []course.ContentBlock{{Content: "A fraction is a part."}}},
			"p-1b": {ID: "p-1b", Number: 2},
			"p-1c": {ID: "p-1c", Number: 3},
			"p-2a": {ID: "p-2a", Number: 1},
		},
		results: map[string]*course.QuizResult{},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRecorder captures events.
type memRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *memRecorder) Record(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *memRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func newController(src *fakeSource, role course.Role) *Controller {
	return New(src, Config{
		CourseID:         "c1",
		StudentID:        "stu-1",
		Role:             role,
		PreassessmentURL: "https://learn.example.com/preassessment",
		Logger:           quietLogger(),
	})
}
