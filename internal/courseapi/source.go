// Package courseapi is the data-access layer the progression controller
// fetches course material through.
package courseapi

import (
	"context"

	"github.com/abhisek/learnpath/internal/course"
)

// PagesResponse is the result of a per-subtopic page fetch.
type PagesResponse struct {
	Pages      []course.Page              `json:"pages"`
	Objectives []course.LearningObjective `json:"objectives"`

	// Masteries is only populated by the student-scoped request.
	Masteries []course.MasteryRecord `json:"masteries,omitempty"`
}

// Source provides read access to course data. Implementations return
// structured results or an error; they never return partial results.
type Source interface {
	// Course returns the course record including its syllabus.
	Course(ctx context.Context, courseID string) (*course.Course, error)

	// Pages returns the ordered pages and objectives of a subtopic. A
	// student role adds per-student context to the request.
	Pages(ctx context.Context, subtopicID string, role course.Role, studentID string) (*PagesResponse, error)

	// Page returns a single page by identifier.
	Page(ctx context.Context, pageID string) (*course.Page, error)

	// Mastery returns every mastery record of a student.
	Mastery(ctx context.Context, studentID string) ([]course.MasteryRecord, error)

	// PreassessmentAttempts returns the student's attempts for a course.
	PreassessmentAttempts(ctx context.Context, studentID, courseID string) ([]course.PreassessmentAttempt, error)

	// QuizResult returns the scored result of a quiz for a student.
	QuizResult(ctx context.Context, quizID, studentID string) (*course.QuizResult, error)
}
