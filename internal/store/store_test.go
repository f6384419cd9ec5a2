package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/courseapi"
	"github.com/abhisek/learnpath/internal/progression"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func importFixture(t *testing.T, s *Store) ImportStats {
	t.Helper()
	stats, err := s.ImportFile(context.Background(), filepath.Join("testdata", "fractions.yaml"))
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	return stats
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "learnpath.db")
	if err := EnsureDir(path); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestImportFile(t *testing.T) {
	s := openTestStore(t)
	stats := importFixture(t, s)

	want := ImportStats{CourseID: "fractions-101", Lessons: 2, Pages: 3, Objectives: 2, Students: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	// Importing again replaces rather than duplicates.
	importFixture(t, s)
	var pages int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM pages`).Scan(&pages); err != nil {
		t.Fatal(err)
	}
	if pages != 3 {
		t.Errorf("pages after re-import = %d, want 3", pages)
	}
}

func TestLoadCourseFileRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("course:\n  title: No id\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCourseFile(path); err == nil {
		t.Error("expected error for course without id")
	}
	if _, err := LoadCourseFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSourceCourse(t *testing.T) {
	s := openTestStore(t)
	importFixture(t, s)
	src := s.Source()
	ctx := context.Background()

	c, err := src.Course(ctx, "fractions-101")
	if err != nil {
		t.Fatalf("Course: %v", err)
	}
	if c.Title != "Fractions" || c.Syllabus == nil || len(c.Syllabus.Lessons) != 2 {
		t.Fatalf("course = %+v", c)
	}

	lessons := course.BuildLessons(c, nil)
	if lessons[0].ID != "L1" || lessons[0].Topics[0].Subtopics[0].ID != "sub-1" {
		t.Errorf("lessons[0] = %+v", lessons[0])
	}

	_, err = src.Course(ctx, "nope")
	if !errors.Is(err, courseapi.ErrNotFound) {
		t.Errorf("Course(nope) = %v, want ErrNotFound", err)
	}
}

func TestSourcePages(t *testing.T) {
	s := openTestStore(t)
	importFixture(t, s)
	src := s.Source()
	ctx := context.Background()

	resp, err := src.Pages(ctx, "sub-1", course.RoleStudent, "stu-1")
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(resp.Pages) != 2 || resp.Pages[0].ID != "p-1a" || resp.Pages[1].ID != "p-1b" {
		t.Fatalf("pages = %+v", resp.Pages)
	}
	if got := resp.Pages[0].Blocks[0].Content; got != "A half is one of two equal parts." {
		t.Errorf("content = %q", got)
	}
	if len(resp.Objectives) != 2 || resp.Objectives[0].ID != 11 {
		t.Errorf("objectives = %+v", resp.Objectives)
	}
	if len(resp.Masteries) != 2 {
		t.Errorf("student masteries = %d, want 2", len(resp.Masteries))
	}

	resp, err = src.Pages(ctx, "sub-1", course.RoleTeacher, "")
	if err != nil {
		t.Fatalf("Pages (teacher): %v", err)
	}
	if len(resp.Masteries) != 0 {
		t.Errorf("teacher masteries = %d, want 0", len(resp.Masteries))
	}

	resp, err = src.Pages(ctx, "sub-2", course.RoleStudent, "stu-1")
	if err != nil {
		t.Fatalf("Pages (sub-2): %v", err)
	}
	if len(resp.Pages) != 1 || resp.Pages[0].Number != 1 {
		t.Errorf("sub-2 pages = %+v; unnumbered pages get their position", resp.Pages)
	}

	resp, err = src.Pages(ctx, "unknown", course.RoleStudent, "stu-1")
	if err != nil || len(resp.Pages) != 0 {
		t.Errorf("unknown subtopic = (%+v, %v), want empty", resp, err)
	}
}

func TestSourcePage(t *testing.T) {
	s := openTestStore(t)
	importFixture(t, s)
	src := s.Source()

	p, err := src.Page(context.Background(), "p-1b")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if p.Number != 2 || len(p.Blocks) != 1 {
		t.Errorf("page = %+v", p)
	}
	if _, err := src.Page(context.Background(), "zzz"); !errors.Is(err, courseapi.ErrNotFound) {
		t.Errorf("Page(zzz) = %v, want ErrNotFound", err)
	}
}

func TestSourceLearnerRecords(t *testing.T) {
	s := openTestStore(t)
	importFixture(t, s)
	src := s.Source()
	ctx := context.Background()

	m, err := src.Mastery(ctx, "stu-1")
	if err != nil {
		t.Fatalf("Mastery: %v", err)
	}
	if len(m) != 2 || m[0].Level != 80 || m[0].StudentID != "stu-1" {
		t.Errorf("mastery = %+v", m)
	}
	if want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC); !m[0].LastUpdated.Equal(want) {
		t.Errorf("LastUpdated = %v, want %v", m[0].LastUpdated, want)
	}

	attempts, err := src.PreassessmentAttempts(ctx, "stu-1", "fractions-101")
	if err != nil {
		t.Fatalf("PreassessmentAttempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Score != 8 || attempts[0].Feedback == "" {
		t.Errorf("attempts = %+v", attempts)
	}

	none, err := src.PreassessmentAttempts(ctx, "stu-2", "fractions-101")
	if err != nil || len(none) != 0 {
		t.Errorf("other student attempts = (%v, %v)", none, err)
	}

	r, err := src.QuizResult(ctx, "Lesson 1 Quiz", "stu-1")
	if err != nil {
		t.Fatalf("QuizResult: %v", err)
	}
	if !r.Passed || r.TotalQuestions != 4 || !r.Results["q1"] {
		t.Errorf("quiz result = %+v", r)
	}
	if _, err := src.QuizResult(ctx, "Lesson 2 Quiz", "stu-1"); !errors.Is(err, courseapi.ErrNotFound) {
		t.Errorf("missing quiz result = %v, want ErrNotFound", err)
	}
}

func TestControllerOverOfflineSource(t *testing.T) {
	s := openTestStore(t)
	importFixture(t, s)
	ctx := context.Background()

	c := progression.New(s.Source(), progression.Config{
		CourseID:  "fractions-101",
		StudentID: "stu-1",
		Role:      course.RoleStudent,
		Recorder:  s.EventRepo(),
	})
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.SelectSubtopic(ctx, "sub-1"); err != nil {
		t.Fatalf("SelectSubtopic: %v", err)
	}

	snap := c.Snapshot()
	if snap.Progress != 50 || !snap.Gate.ExamOpen() {
		t.Errorf("progress = %v, gate = %v", snap.Progress, snap.Gate)
	}
	if snap.Page == nil || snap.Page.ID != "p-1a" {
		t.Errorf("page = %+v, want p-1a", snap.Page)
	}

	events, err := s.EventRepo().Events(ctx, QueryOpts{SessionID: c.SessionID()})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4", len(events))
	}
	last := events[len(events)-1]
	if last.Kind != progression.EventSubtopicOpened || last.To != progression.ViewLessonContent || last.SubtopicID != "sub-1" {
		t.Errorf("last event = %+v", last)
	}
}

func TestEventRepoQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ev := progression.Event{
			SessionID:   fmt.Sprintf("sess-%d", i%2),
			Kind:        progression.EventQuizStarted,
			StudentID:   "stu-1",
			From:        progression.ViewSyllabus,
			To:          progression.ViewQuiz,
			LessonIndex: i,
		}
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := repo.Events(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Sequence <= all[i-1].Sequence {
			t.Errorf("sequence not increasing at %d", i)
		}
	}
	if all[0].To != progression.ViewQuiz || all[0].At.IsZero() {
		t.Errorf("event[0] = %+v", all[0])
	}

	sess, _ := repo.Events(ctx, QueryOpts{SessionID: "sess-0"})
	if len(sess) != 3 {
		t.Errorf("sess-0 events = %d, want 3", len(sess))
	}
	after, _ := repo.Events(ctx, QueryOpts{After: all[2].Sequence, Limit: 1})
	if len(after) != 1 || after[0].Sequence != all[3].Sequence {
		t.Errorf("after/limit = %+v", after)
	}
}

func TestSnapshotSaveLatestPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	snap, err := repo.Latest(ctx, "c1", "stu-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot on empty store")
	}

	if err := s.EventRepo().Record(ctx, progression.Event{Kind: progression.EventCourseLoaded}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	for i, pct := range []float64{10, 20, 30} {
		err := repo.Save(ctx, &Snapshot{
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
			Data:      SnapshotData{CourseID: "c1", StudentID: "stu-1", Progress: pct},
		})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := repo.Save(ctx, &Snapshot{Data: SnapshotData{CourseID: "c2", StudentID: "stu-1", Progress: 99}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, err = repo.Latest(ctx, "c1", "stu-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if snap == nil || snap.Data.Progress != 30 {
		t.Fatalf("latest = %+v, want progress 30", snap)
	}
	if snap.Sequence != 1 || snap.Data.Version != snapshotVersion {
		t.Errorf("sequence = %d, version = %d", snap.Sequence, snap.Data.Version)
	}

	if err := repo.Prune(ctx, 1); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM progress_snapshots`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("snapshots after prune = %d, want 1", count)
	}
}
