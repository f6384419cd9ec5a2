package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// snapshotRepo implements SnapshotRepo with raw SQL. The payload is stored
// as JSON so new fields need no migration.
type snapshotRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

const snapshotVersion = 1

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Data.Version == 0 {
		snap.Data.Version = snapshotVersion
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	if snap.Sequence == 0 {
		seq, err := r.seq.Current(ctx)
		if err != nil {
			return err
		}
		snap.Sequence = seq
	}

	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO progress_snapshots (sequence, timestamp, data) VALUES (?, ?, ?)`,
		snap.Sequence, snap.Timestamp.UTC().Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context, courseID, studentID string) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, sequence, timestamp, data FROM progress_snapshots
		 WHERE json_extract(data, '$.course_id') = ? AND json_extract(data, '$.student_id') = ?
		 ORDER BY id DESC LIMIT 1`,
		courseID, studentID)

	var (
		snap Snapshot
		ts   string
		data string
	)
	if err := row.Scan(&snap.ID, &snap.Sequence, &ts, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot timestamp %q: %w", ts, err)
	}
	snap.Timestamp = t
	if err := json.Unmarshal([]byte(data), &snap.Data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	return &snap, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM progress_snapshots WHERE id NOT IN (
			SELECT id FROM progress_snapshots ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
