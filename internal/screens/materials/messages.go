package materials

import "github.com/abhisek/learnpath/internal/progression"

// opDoneMsg is sent when a controller operation started by the screen
// returns.
type opDoneMsg struct {
	Op  string
	Err error
}

// preassessmentMsg is sent when the preassessment hand-off has been
// resolved.
type preassessmentMsg struct {
	Target progression.PreassessmentTarget
	Err    error
}
