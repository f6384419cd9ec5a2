package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/learnpath/internal/progression"
)

// eventRepo implements EventRepo with raw SQL.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *eventRepo) Record(ctx context.Context, ev progression.Event) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO progression_events
		 (sequence, session_id, kind, course_id, student_id, from_view, to_view, lesson_index, subtopic_id, detail, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum,
		ev.SessionID,
		ev.Kind,
		ev.CourseID,
		ev.StudentID,
		ev.From.String(),
		ev.To.String(),
		ev.LessonIndex,
		ev.SubtopicID,
		ev.Detail,
		ev.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save progression event: %w", err)
	}
	return nil
}

func (r *eventRepo) Events(ctx context.Context, opts QueryOpts) ([]EventRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.After > 0 {
		where = append(where, "sequence > ?")
		args = append(args, opts.After)
	}
	if opts.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.StudentID != "" {
		where = append(where, "student_id = ?")
		args = append(args, opts.StudentID)
	}
	if !opts.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, opts.From.UTC().Format(time.RFC3339Nano))
	}

	q := `SELECT sequence, session_id, kind, course_id, student_id, from_view, to_view, lesson_index, subtopic_id, detail, timestamp
		  FROM progression_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY sequence ASC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query progression events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			rec      EventRecord
			from, to string
			ts       string
		)
		if err := rows.Scan(&rec.Sequence, &rec.SessionID, &rec.Kind, &rec.CourseID, &rec.StudentID,
			&from, &to, &rec.LessonIndex, &rec.SubtopicID, &rec.Detail, &ts); err != nil {
			return nil, fmt.Errorf("scan progression event: %w", err)
		}
		rec.From = parseView(from)
		rec.To = parseView(to)
		rec.At, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse event timestamp %q: %w", ts, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseView(s string) progression.View {
	for v := progression.ViewSyllabus; v <= progression.ViewExam; v++ {
		if v.String() == s {
			return v
		}
	}
	return progression.ViewSyllabus
}
