package progression

import (
	"context"
	"time"
)

// Event kinds written to the Recorder.
const (
	EventCourseLoaded      = "course_loaded"
	EventSubtopicOpened    = "subtopic_opened"
	EventPageViewed        = "page_viewed"
	EventQuizStarted       = "quiz_started"
	EventLessonCompleted   = "lesson_completed"
	EventQuizResult        = "quiz_result"
	EventExamStarted       = "exam_started"
	EventPreassessment     = "preassessment_started"
	EventReturnedSyllabus  = "returned_to_syllabus"
	EventMasteryRefreshed  = "mastery_refreshed"
	EventGateRefreshed     = "gate_refreshed"
)

// Event is one controller transition, as recorded in the learner's
// progression log.
type Event struct {
	SessionID   string
	Kind        string
	CourseID    string
	StudentID   string
	From        View
	To          View
	LessonIndex int
	SubtopicID  string
	Detail      string
	At          time.Time
}

// Recorder persists controller events. Recording failures are logged and
// never affect the transition.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
