// Package progression implements the controller that decides which view a
// learner sees and how they move between syllabus, lesson content, quizzes,
// quiz results and the final exam.
package progression

import (
	"errors"
	"fmt"
)

// View is the single active render target.
type View int

const (
	ViewSyllabus View = iota
	ViewLessonContent
	ViewQuiz
	ViewQuizResult
	ViewExam
)

func (v View) String() string {
	switch v {
	case ViewSyllabus:
		return "syllabus"
	case ViewLessonContent:
		return "lesson-content"
	case ViewQuiz:
		return "quiz"
	case ViewQuizResult:
		return "quiz-result"
	case ViewExam:
		return "exam"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}

var (
	// ErrInvalidTransition is returned for an operation the current view
	// does not allow. State is unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrGateClosed is returned by TakeExam before any preassessment attempt.
	ErrGateClosed = errors.New("preassessment required before the exam")

	// ErrNotLastPage is returned by CompleteLesson before the last page.
	ErrNotLastPage = errors.New("lesson content not finished")

	// ErrSuperseded is returned when a fetch completes after a newer
	// request or a transition made it irrelevant. Its result is discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// TransitionError describes a rejected operation.
type TransitionError struct {
	Op   string
	From View
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed from %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func invalid(op string, from View) error {
	return &TransitionError{Op: op, From: from}
}
