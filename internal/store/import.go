package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/learnpath/internal/course"
)

// CourseFile is the YAML layout of an importable course.
type CourseFile struct {
	Course    course.Course              `yaml:"course"`
	Subtopics map[string]SubtopicContent `yaml:"subtopics"`
	Students  []StudentData              `yaml:"students"`
}

// SubtopicContent is the material of one subtopic, keyed by subtopic ID.
type SubtopicContent struct {
	Objectives []course.LearningObjective `yaml:"objectives"`
	Pages      []course.Page              `yaml:"pages"`
}

// StudentData seeds a learner's records for offline use.
type StudentData struct {
	ID             string                        `yaml:"id"`
	Mastery        []course.MasteryRecord        `yaml:"mastery"`
	Preassessments []course.PreassessmentAttempt `yaml:"preassessments"`
	QuizResults    map[string]course.QuizResult  `yaml:"quiz_results"`
}

// ImportStats summarizes an import.
type ImportStats struct {
	CourseID   string
	Lessons    int
	Pages      int
	Objectives int
	Students   int
}

// LoadCourseFile parses a YAML course file.
func LoadCourseFile(path string) (*CourseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cf CourseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cf.Course.ID == "" {
		return nil, fmt.Errorf("%s: course id is required", path)
	}
	if cf.Course.Title == "" {
		return nil, fmt.Errorf("%s: course title is required", path)
	}
	return &cf, nil
}

// ImportFile loads a YAML course file into the store.
func (s *Store) ImportFile(ctx context.Context, path string) (ImportStats, error) {
	cf, err := LoadCourseFile(path)
	if err != nil {
		return ImportStats{}, err
	}
	return s.Import(ctx, cf)
}

// Import replaces the stored content of cf's course and upserts the
// student records, all in one transaction.
func (s *Store) Import(ctx context.Context, cf *CourseFile) (stats ImportStats, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stats.CourseID = cf.Course.ID
	if cf.Course.Syllabus != nil {
		stats.Lessons = len(cf.Course.Syllabus.Lessons)
	}

	courseJSON, err := json.Marshal(cf.Course)
	if err != nil {
		return stats, fmt.Errorf("encode course: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO courses (id, title, data, imported_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, data = excluded.data, imported_at = excluded.imported_at`,
		cf.Course.ID, cf.Course.Title, string(courseJSON), now); err != nil {
		return stats, fmt.Errorf("save course: %w", err)
	}

	for subtopicID, content := range cf.Subtopics {
		if err = importSubtopic(ctx, tx, subtopicID, content); err != nil {
			return stats, err
		}
		stats.Pages += len(content.Pages)
		stats.Objectives += len(content.Objectives)
	}

	for _, st := range cf.Students {
		if st.ID == "" {
			return stats, fmt.Errorf("student without id")
		}
		if err = importStudent(ctx, tx, cf.Course.ID, st); err != nil {
			return stats, err
		}
		stats.Students++
	}

	if err = tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit import: %w", err)
	}
	return stats, nil
}

func importSubtopic(ctx context.Context, tx *sql.Tx, subtopicID string, content SubtopicContent) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE subtopic_id = ?`, subtopicID); err != nil {
		return fmt.Errorf("clear pages of %s: %w", subtopicID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM objectives WHERE subtopic_id = ?`, subtopicID); err != nil {
		return fmt.Errorf("clear objectives of %s: %w", subtopicID, err)
	}

	for i, p := range content.Pages {
		if p.ID == "" {
			return fmt.Errorf("subtopic %s: page %d has no id", subtopicID, i)
		}
		number := p.Number
		if number == 0 {
			number = i + 1
		}
		blocks, err := json.Marshal(p.Blocks)
		if err != nil {
			return fmt.Errorf("encode blocks of page %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (id, subtopic_id, number, syllabus_id, blocks) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET subtopic_id = excluded.subtopic_id, number = excluded.number,
			   syllabus_id = excluded.syllabus_id, blocks = excluded.blocks`,
			p.ID, subtopicID, number, p.SyllabusID, string(blocks)); err != nil {
			return fmt.Errorf("save page %s: %w", p.ID, err)
		}
	}

	for _, o := range content.Objectives {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO objectives (id, subtopic_id, subtopic_ref, text) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET subtopic_id = excluded.subtopic_id,
			   subtopic_ref = excluded.subtopic_ref, text = excluded.text`,
			o.ID, subtopicID, o.SubtopicID, o.Text); err != nil {
			return fmt.Errorf("save objective %d: %w", o.ID, err)
		}
	}
	return nil
}

func importStudent(ctx context.Context, tx *sql.Tx, courseID string, st StudentData) error {
	for _, m := range st.Mastery {
		updated := m.LastUpdated
		if updated.IsZero() {
			updated = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mastery (student_id, objective_id, record_id, level, attempts, last_updated) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(student_id, objective_id) DO UPDATE SET record_id = excluded.record_id,
			   level = excluded.level, attempts = excluded.attempts, last_updated = excluded.last_updated`,
			st.ID, m.ObjectiveID, m.ID, m.Level, m.Attempts, updated.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("save mastery of %s: %w", st.ID, err)
		}
	}

	for _, a := range st.Preassessments {
		taken := a.TakenAt
		if taken.IsZero() {
			taken = time.Now()
		}
		var id any
		if a.ID != 0 {
			id = a.ID
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO preassessment_attempts (id, student_id, course_id, score, total_questions, feedback, taken_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, st.ID, courseID, a.Score, a.TotalQuestions, a.Feedback, taken.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("save preassessment of %s: %w", st.ID, err)
		}
	}

	for quizID, r := range st.QuizResults {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode quiz result %s: %w", quizID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_results (quiz_id, student_id, data) VALUES (?, ?, ?)
			 ON CONFLICT(quiz_id, student_id) DO UPDATE SET data = excluded.data`,
			quizID, st.ID, string(data)); err != nil {
			return fmt.Errorf("save quiz result %s: %w", quizID, err)
		}
	}
	return nil
}
