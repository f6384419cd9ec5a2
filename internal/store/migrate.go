package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		data TEXT NOT NULL,
		imported_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		subtopic_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		syllabus_id TEXT NOT NULL DEFAULT '',
		blocks TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_pages_subtopic ON pages(subtopic_id, number);`,
	`CREATE TABLE IF NOT EXISTS objectives (
		id INTEGER PRIMARY KEY,
		subtopic_id TEXT NOT NULL,
		subtopic_ref INTEGER NOT NULL DEFAULT 0,
		text TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_objectives_subtopic ON objectives(subtopic_id);`,
	`CREATE TABLE IF NOT EXISTS mastery (
		student_id TEXT NOT NULL,
		objective_id INTEGER NOT NULL,
		record_id INTEGER NOT NULL DEFAULT 0,
		level REAL NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_updated TEXT NOT NULL,
		PRIMARY KEY (student_id, objective_id)
	);`,
	`CREATE TABLE IF NOT EXISTS preassessment_attempts (
		id INTEGER PRIMARY KEY,
		student_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		taken_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_student_course ON preassessment_attempts(student_id, course_id);`,
	`CREATE TABLE IF NOT EXISTS quiz_results (
		quiz_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (quiz_id, student_id)
	);`,
	`CREATE TABLE IF NOT EXISTS progression_events (
		sequence INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		course_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		from_view TEXT NOT NULL,
		to_view TEXT NOT NULL,
		lesson_index INTEGER NOT NULL,
		subtopic_id TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_events_session ON progression_events(session_id);`,
	`CREATE TABLE IF NOT EXISTS progress_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		data TEXT NOT NULL
	);`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			head, _, _ := strings.Cut(stmt, "\n")
			return fmt.Errorf("exec %q: %w", head, err)
		}
	}
	return nil
}
