package progress

import (
	"fmt"

	"github.com/abhisek/learnpath/internal/course"
)

// Gate is the preassessment precondition for the final exam. Exactly one of
// "take preassessment" and "take exam" is offered.
type Gate int

const (
	GateMustPreassess Gate = iota
	GateExamOpen
)

func (g Gate) String() string {
	switch g {
	case GateMustPreassess:
		return "must-preassess"
	case GateExamOpen:
		return "exam-open"
	default:
		return fmt.Sprintf("gate(%d)", int(g))
	}
}

// ExamOpen reports whether the exam control is offered.
func (g Gate) ExamOpen() bool { return g == GateExamOpen }

// GateFromAttempts opens the exam once any preassessment attempt exists.
func GateFromAttempts(attempts []course.PreassessmentAttempt) Gate {
	if len(attempts) > 0 {
		return GateExamOpen
	}
	return GateMustPreassess
}
