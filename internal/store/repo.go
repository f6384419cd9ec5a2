package store

import (
	"context"
	"time"

	"github.com/abhisek/learnpath/internal/progression"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit     int       // max results (0 = unlimited)
	After     int64     // sequence > After
	SessionID string    // exact session match
	StudentID string    // exact student match
	From      time.Time // timestamp >= From
}

// EventRecord is a stored progression event.
type EventRecord struct {
	Sequence int64
	progression.Event
}

// EventRepo is the append-only progression log. It satisfies
// progression.Recorder.
type EventRepo interface {
	progression.Recorder

	// Events returns stored events in sequence order.
	Events(ctx context.Context, opts QueryOpts) ([]EventRecord, error)
}

// SnapshotData is the learner's progress at a point in time.
type SnapshotData struct {
	Version          int      `json:"version"`
	CourseID         string   `json:"course_id"`
	StudentID        string   `json:"student_id"`
	SessionID        string   `json:"session_id,omitempty"`
	Progress         float64  `json:"progress"`
	Coverage         float64  `json:"coverage"`
	MasteredCount    int      `json:"mastered_count"`
	ObjectiveCount   int      `json:"objective_count"`
	CompletedLessons []string `json:"completed_lessons,omitempty"`
}

// Snapshot is a stored progress snapshot.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Data      SnapshotData
}

// SnapshotRepo manages progress snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot. A zero Sequence is filled with the last
	// event sequence.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot of a student's course, or nil
	// if none exist.
	Latest(ctx context.Context, courseID, studentID string) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}
