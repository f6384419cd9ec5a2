package course

import "time"

// Role identifies the caller's account type. Only students get per-student
// mastery context attached to page fetches.
type Role string

const (
	RoleStudent Role = "S"
	RoleTeacher Role = "T"
)

// IsStudent reports whether the role is the student role.
func (r Role) IsStudent() bool {
	return r == RoleStudent
}

// Course is the raw course record returned by the backend.
type Course struct {
	ID       string    `json:"course_id" yaml:"id"`
	Title    string    `json:"course_title" yaml:"title"`
	Syllabus *Syllabus `json:"syllabus,omitempty" yaml:"syllabus"`
}

// Syllabus holds the nested lessons of a course.
type Syllabus struct {
	ID      string   `json:"syllabus_id" yaml:"id"`
	Lessons []Lesson `json:"lessons" yaml:"lessons"`
}

// Objective is a lesson- or topic-level objective as listed in the syllabus.
type Objective struct {
	Text string `json:"text" yaml:"text"`
}

// Lesson is the top level of the syllabus tree.
type Lesson struct {
	ID         string      `json:"lesson_id" yaml:"id"`
	Title      string      `json:"lesson_title" yaml:"title"`
	Order      int         `json:"order" yaml:"order"`
	Topics     []Topic     `json:"topics" yaml:"topics"`
	Objectives []Objective `json:"learning_objectives" yaml:"objectives"`

	// QuizID and Completed are derived client-side.
	QuizID    string `json:"quiz_id,omitempty" yaml:"-"`
	Completed bool   `json:"completed,omitempty" yaml:"-"`
}

// Topic groups subtopics within a lesson.
type Topic struct {
	ID         string      `json:"topic_id" yaml:"id"`
	Title      string      `json:"topic_title" yaml:"title"`
	Order      int         `json:"order" yaml:"order"`
	Subtopics  []Subtopic  `json:"subtopics" yaml:"subtopics"`
	Objectives []Objective `json:"learning_objectives" yaml:"objectives"`
}

// Subtopic is the leaf navigation unit. Opening one counts as a visit.
type Subtopic struct {
	ID    string `json:"subtopic_id" yaml:"id"`
	Title string `json:"subtopic_title" yaml:"title"`
	Order int    `json:"order" yaml:"order"`
}

// SubtopicCount returns the number of subtopics across all topics.
func (l Lesson) SubtopicCount() int {
	n := 0
	for _, t := range l.Topics {
		n += len(t.Subtopics)
	}
	return n
}

// HasSubtopic reports whether the lesson owns the given subtopic.
func (l Lesson) HasSubtopic(id string) bool {
	for _, t := range l.Topics {
		for _, st := range t.Subtopics {
			if st.ID == id {
				return true
			}
		}
	}
	return false
}

// Page is one page of subtopic material.
type Page struct {
	ID         string         `json:"page_id" yaml:"id"`
	Number     int            `json:"page_number" yaml:"number"`
	Blocks     []ContentBlock `json:"content_blocks" yaml:"blocks"`
	SyllabusID string         `json:"syllabus" yaml:"syllabus"`
}

// ContentBlock is a rendered unit of page content.
type ContentBlock struct {
	ID         int    `json:"block_id" yaml:"id"`
	Type       string `json:"block_type" yaml:"type"`
	Difficulty string `json:"difficulty" yaml:"difficulty"`
	Content    string `json:"content" yaml:"content"`
}

// LearningObjective is a measurable objective attached to a subtopic.
type LearningObjective struct {
	ID         int    `json:"id" yaml:"id"`
	Text       string `json:"text" yaml:"text"`
	SubtopicID int    `json:"subtopic" yaml:"subtopic"`
}

// MasteryRecord is a student's mastery of one learning objective.
type MasteryRecord struct {
	ID          int       `json:"id" yaml:"id"`
	Level       float64   `json:"mastery_level" yaml:"level"`
	Attempts    int       `json:"questions_attempted" yaml:"attempts"`
	LastUpdated time.Time `json:"last_updated" yaml:"last_updated"`
	StudentID   string    `json:"student" yaml:"student"`
	ObjectiveID int       `json:"learning_objective" yaml:"objective"`
}

// Choice is one answer option of a quiz question.
type Choice struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Question is a scored quiz question.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Text          string   `json:"text" yaml:"text"`
	Choices       []Choice `json:"choices" yaml:"choices"`
	CorrectOption string   `json:"correct_option" yaml:"correct_option"`
}

// QuizResult is the scored review of a submitted quiz.
type QuizResult struct {
	Questions      []Question        `json:"questions" yaml:"questions"`
	Answers        map[string]string `json:"answers" yaml:"answers"`
	Results        map[string]bool   `json:"results" yaml:"results"`
	Score          int               `json:"score" yaml:"score"`
	TotalQuestions int               `json:"totalQuestions" yaml:"total_questions"`
	Passed         bool              `json:"passed" yaml:"passed"`
}

// PreassessmentAttempt is a completed preassessment for a course.
type PreassessmentAttempt struct {
	ID             int       `json:"id" yaml:"id"`
	StudentID      string    `json:"student" yaml:"student"`
	CourseID       string    `json:"course" yaml:"course"`
	Score          int       `json:"score" yaml:"score"`
	TotalQuestions int       `json:"total_questions" yaml:"total_questions"`
	Feedback       string    `json:"feedback,omitempty" yaml:"feedback"`
	TakenAt        time.Time `json:"taken_at" yaml:"taken_at"`
}
