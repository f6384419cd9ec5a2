package progression

import (
	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/progress"
)

// ObjectiveView is a learning objective with its display status.
type ObjectiveView struct {
	Objective course.LearningObjective
	Status    progress.ObjectiveStatus
}

// Snapshot is a read-only copy of everything a host needs to render.
type Snapshot struct {
	View        View
	Loaded      bool
	CourseTitle string
	Lessons     []course.Lesson

	// ActiveLesson is -1 when no lesson is active.
	ActiveLesson int
	QuizID       string

	SubtopicID     string
	Page           *course.Page
	PageOrdinal    int
	PageCount      int
	HasPrev        bool
	HasNext        bool
	OnLastPage     bool
	NoContent      bool
	ShowObjectives bool
	Objectives     []ObjectiveView

	// Progress is the mastery percentage shown in the progress bar.
	Progress       float64
	MasteryLoaded  bool
	MasteredCount  int
	ObjectiveCount int

	// Coverage is the share of subtopics visited this session.
	Coverage float64

	Gate          progress.Gate
	GateKnown     bool
	LatestAttempt *course.PreassessmentAttempt

	QuizResult          *course.QuizResult
	ExamTitle           string
	AllLessonsCompleted bool

	Busy bool
	Err  error
}

// Snapshot returns the current render model.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	lessons := make([]course.Lesson, len(c.lessons))
	copy(lessons, c.lessons)

	s := Snapshot{
		View:                c.view,
		Loaded:              c.loaded,
		CourseTitle:         c.courseTitle,
		Lessons:             lessons,
		ActiveLesson:        c.activeLesson,
		SubtopicID:          c.pages.SubtopicID(),
		PageOrdinal:         c.pages.Ordinal(),
		PageCount:           c.pages.Len(),
		HasPrev:             c.pages.HasPrev(),
		HasNext:             c.pages.HasNext(),
		OnLastPage:          c.pages.OnLastPage(),
		NoContent:           c.pages.NoContent(),
		ShowObjectives:      c.pages.ShowObjectives(),
		Progress:            c.mastery.Progress(),
		MasteryLoaded:       c.mastery.Loaded(),
		Coverage:            progress.Coverage(c.visited, c.lessons),
		Gate:                c.gate,
		GateKnown:           c.gateKnown,
		ExamTitle:           c.courseTitle,
		AllLessonsCompleted: len(c.lessons) > 0 && course.AllCompleted(c.lessons),
		Busy:                c.inflight > 0,
	}
	s.MasteredCount, s.ObjectiveCount = c.mastery.Counts()
	if s.ExamTitle == "" {
		s.ExamTitle = DefaultExamTitle
	}
	if c.activeLesson >= 0 && c.activeLesson < len(c.lessons) {
		s.QuizID = c.lessons[c.activeLesson].QuizID
	}
	if p := c.pages.Current(); p != nil {
		cp := *p
		s.Page = &cp
	}
	for _, o := range c.pages.Objectives() {
		status := c.mastery.Status(o.ID)
		if status != progress.StatusMastered {
			status = c.pageMastery.Status(o.ID)
		}
		s.Objectives = append(s.Objectives, ObjectiveView{Objective: o, Status: status})
	}
	if c.latestAttempt != nil {
		a := *c.latestAttempt
		s.LatestAttempt = &a
	}
	if c.quizResult != nil {
		r := *c.quizResult
		s.QuizResult = &r
	}
	if c.failed != nil {
		s.Err = c.failed.err
	}
	return s
}
