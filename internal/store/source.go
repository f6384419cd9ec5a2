package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/courseapi"
)

// Source serves imported course data as a courseapi.Source for offline use.
type Source struct {
	db *sql.DB
}

var _ courseapi.Source = (*Source)(nil)

// Source returns the offline courseapi.Source backed by this store.
func (s *Store) Source() *Source {
	return &Source{db: s.db}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, courseapi.ErrNotFound)
}

func (s *Source) Course(ctx context.Context, courseID string) (*course.Course, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM courses WHERE id = ?`, courseID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("course", courseID)
		}
		return nil, fmt.Errorf("query course: %w", err)
	}
	var c course.Course
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("decode course %s: %w", courseID, err)
	}
	return &c, nil
}

func (s *Source) Pages(ctx context.Context, subtopicID string, role course.Role, studentID string) (*courseapi.PagesResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, syllabus_id, blocks FROM pages WHERE subtopic_id = ? ORDER BY number`, subtopicID)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	var resp courseapi.PagesResponse
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		resp.Pages = append(resp.Pages, *p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	resp.Objectives, err = s.objectives(ctx, subtopicID)
	if err != nil {
		return nil, err
	}

	if role.IsStudent() && studentID != "" && len(resp.Objectives) > 0 {
		all, err := s.Mastery(ctx, studentID)
		if err != nil {
			return nil, err
		}
		wanted := make(map[int]bool, len(resp.Objectives))
		for _, o := range resp.Objectives {
			wanted[o.ID] = true
		}
		for _, m := range all {
			if wanted[m.ObjectiveID] {
				resp.Masteries = append(resp.Masteries, m)
			}
		}
	}
	return &resp, nil
}

func (s *Source) objectives(ctx context.Context, subtopicID string) ([]course.LearningObjective, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, subtopic_ref FROM objectives WHERE subtopic_id = ? ORDER BY id`, subtopicID)
	if err != nil {
		return nil, fmt.Errorf("query objectives: %w", err)
	}
	defer rows.Close()

	var out []course.LearningObjective
	for rows.Next() {
		var o course.LearningObjective
		if err := rows.Scan(&o.ID, &o.Text, &o.SubtopicID); err != nil {
			return nil, fmt.Errorf("scan objective: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(r rowScanner) (*course.Page, error) {
	var (
		p      course.Page
		blocks string
	)
	if err := r.Scan(&p.ID, &p.Number, &p.SyllabusID, &blocks); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(blocks), &p.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks of page %s: %w", p.ID, err)
	}
	return &p, nil
}

func (s *Source) Page(ctx context.Context, pageID string) (*course.Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, number, syllabus_id, blocks FROM pages WHERE id = ?`, pageID)
	p, err := scanPage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("page", pageID)
		}
		return nil, fmt.Errorf("query page: %w", err)
	}
	return p, nil
}

func (s *Source) Mastery(ctx context.Context, studentID string) ([]course.MasteryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, objective_id, level, attempts, last_updated FROM mastery
		 WHERE student_id = ? ORDER BY objective_id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	defer rows.Close()

	var out []course.MasteryRecord
	for rows.Next() {
		var (
			m  course.MasteryRecord
			ts string
		)
		if err := rows.Scan(&m.ID, &m.ObjectiveID, &m.Level, &m.Attempts, &ts); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		m.StudentID = studentID
		m.LastUpdated, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Source) PreassessmentAttempts(ctx context.Context, studentID, courseID string) ([]course.PreassessmentAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, score, total_questions, feedback, taken_at FROM preassessment_attempts
		 WHERE student_id = ? AND course_id = ? ORDER BY taken_at`, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("query preassessment attempts: %w", err)
	}
	defer rows.Close()

	var out []course.PreassessmentAttempt
	for rows.Next() {
		var (
			a  course.PreassessmentAttempt
			ts string
		)
		if err := rows.Scan(&a.ID, &a.Score, &a.TotalQuestions, &a.Feedback, &ts); err != nil {
			return nil, fmt.Errorf("scan preassessment attempt: %w", err)
		}
		a.StudentID = studentID
		a.CourseID = courseID
		a.TakenAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Source) QuizResult(ctx context.Context, quizID, studentID string) (*course.QuizResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM quiz_results WHERE quiz_id = ? AND student_id = ?`, quizID, studentID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("quiz result", quizID)
		}
		return nil, fmt.Errorf("query quiz result: %w", err)
	}
	var r course.QuizResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decode quiz result %s: %w", quizID, err)
	}
	return &r, nil
}
