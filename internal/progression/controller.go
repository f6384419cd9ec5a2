package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/courseapi"
	"github.com/abhisek/learnpath/internal/pager"
	"github.com/abhisek/learnpath/internal/progress"
)

// DefaultExamTitle is shown when the course has no title.
const DefaultExamTitle = "Final Exam"

// Config identifies the learner and course a controller serves.
type Config struct {
	CourseID  string
	StudentID string
	Role      course.Role

	// PreassessmentURL is the external preassessment page. Course and
	// student IDs are added as query parameters.
	PreassessmentURL string

	Logger   *slog.Logger
	Recorder Recorder
}

// failure is the last failed fetch and how to re-run it.
type failure struct {
	op    string
	err   error
	retry func(context.Context) error
}

// Controller is the learning progression state machine. All methods are
// safe for concurrent use. The lock is never held across a fetch: every
// fetching operation validates under the lock, fetches unlocked, then
// re-validates and applies.
type Controller struct {
	src       courseapi.Source
	cfg       Config
	logger    *slog.Logger
	sessionID string

	mu sync.Mutex

	view         View
	courseTitle  string
	lessons      []course.Lesson
	loaded       bool
	activeLesson int

	pages       pager.State
	pageMastery progress.Aggregator
	pageGen     uint64
	cancelLoad  context.CancelFunc

	mastery       progress.Aggregator
	gate          progress.Gate
	gateKnown     bool
	latestAttempt *course.PreassessmentAttempt

	visited    map[string]bool
	quizResult *course.QuizResult

	inflight int
	failed   *failure
}

// New creates a controller in the syllabus view. Call Load to fetch the
// course.
func New(src courseapi.Source, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := uuid.NewString()
	return &Controller{
		src:          src,
		cfg:          cfg,
		logger:       logger.With("component", "progression", "session", sessionID),
		sessionID:    sessionID,
		view:         ViewSyllabus,
		activeLesson: -1,
		visited:      make(map[string]bool),
	}
}

// SessionID identifies this controller's events in the progression log.
func (c *Controller) SessionID() string { return c.sessionID }

// carryCompleted keeps completion from an earlier load: a lesson completed
// in this session stays completed when the course is reloaded.
func carryCompleted(next, prev []course.Lesson) {
	done := make(map[string]bool, len(prev))
	for _, l := range prev {
		if l.Completed {
			done[l.ID] = true
		}
	}
	for i := range next {
		if done[next[i].ID] {
			next[i].Completed = true
		}
	}
}

// Load fetches the course and builds the lesson tree, then refreshes
// mastery and the preassessment gate. A course failure leaves the
// controller as it was; mastery and gate failures are reported but do not
// undo the course load.
func (c *Controller) Load(ctx context.Context) error {
	c.begin()
	crs, err := c.src.Course(ctx, c.cfg.CourseID)
	c.end()
	if err != nil {
		err = fmt.Errorf("load course %s: %w", c.cfg.CourseID, err)
		c.fail("load", err, c.Load)
		return err
	}

	lessons := course.BuildLessons(crs, c.logger)

	c.mu.Lock()
	from := c.view
	c.cancelLoadLocked()
	c.courseTitle = crs.Title
	carryCompleted(lessons, c.lessons)
	c.lessons = lessons
	c.loaded = true
	c.view = ViewSyllabus
	c.activeLesson = -1
	c.pages.Reset()
	c.pageMastery = progress.Aggregator{}
	c.quizResult = nil
	c.clearLocked("load")
	c.mu.Unlock()

	c.logger.Info("course loaded", "course", c.cfg.CourseID, "lessons", len(lessons))
	c.emit(ctx, Event{Kind: EventCourseLoaded, From: from, To: ViewSyllabus, LessonIndex: -1, Detail: crs.Title})

	var errs []error
	if c.cfg.StudentID != "" {
		if err := c.RefreshMastery(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.RefreshGate(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RefreshMastery re-fetches the student's mastery records and recomputes
// progress. The view never changes.
func (c *Controller) RefreshMastery(ctx context.Context) error {
	c.begin()
	records, err := c.src.Mastery(ctx, c.cfg.StudentID)
	c.end()
	if err != nil {
		err = fmt.Errorf("refresh mastery: %w", err)
		c.fail("mastery", err, c.RefreshMastery)
		return err
	}

	c.mu.Lock()
	c.mastery.Apply(records)
	pct := c.mastery.Progress()
	view := c.view
	c.clearLocked("mastery")
	c.mu.Unlock()

	c.logger.Debug("mastery refreshed", "records", len(records), "progress", pct)
	c.emit(ctx, Event{Kind: EventMasteryRefreshed, From: view, To: view, LessonIndex: -1, Detail: fmt.Sprintf("%.1f", pct)})
	return nil
}

// RefreshGate re-derives the preassessment gate. Hosts call it on mount and
// whenever the learner returns from the external preassessment.
func (c *Controller) RefreshGate(ctx context.Context) error {
	c.begin()
	attempts, err := c.src.PreassessmentAttempts(ctx, c.cfg.StudentID, c.cfg.CourseID)
	c.end()
	if err != nil {
		err = fmt.Errorf("check preassessment: %w", err)
		c.fail("gate", err, c.RefreshGate)
		return err
	}

	gate := progress.GateFromAttempts(attempts)

	c.mu.Lock()
	c.gate = gate
	c.gateKnown = true
	c.latestAttempt = progress.LatestAttempt(attempts)
	view := c.view
	c.clearLocked("gate")
	c.mu.Unlock()

	c.logger.Debug("preassessment gate refreshed", "gate", gate.String(), "attempts", len(attempts))
	c.emit(ctx, Event{Kind: EventGateRefreshed, From: view, To: view, LessonIndex: -1, Detail: gate.String()})
	return nil
}

// Retry re-runs the last failed fetch. It is a no-op when nothing failed.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	f := c.failed
	c.mu.Unlock()
	if f == nil || f.retry == nil {
		return nil
	}
	c.logger.Info("retrying", "op", f.op)
	return f.retry(ctx)
}

// PreassessmentTarget is where the host navigates for the preassessment.
type PreassessmentTarget struct {
	URL       string
	CourseID  string
	StudentID string
}

func (c *Controller) preassessmentTarget() PreassessmentTarget {
	t := PreassessmentTarget{CourseID: c.cfg.CourseID, StudentID: c.cfg.StudentID}
	if c.cfg.PreassessmentURL == "" {
		return t
	}
	u, err := url.Parse(c.cfg.PreassessmentURL)
	if err != nil {
		t.URL = c.cfg.PreassessmentURL
		return t
	}
	q := u.Query()
	q.Set("course_id", c.cfg.CourseID)
	q.Set("student_id", c.cfg.StudentID)
	u.RawQuery = q.Encode()
	t.URL = u.String()
	return t
}

func (c *Controller) begin() {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()
}

func (c *Controller) end() {
	c.mu.Lock()
	c.inflight--
	c.mu.Unlock()
}

// fail logs err and records it as the retryable last error.
func (c *Controller) fail(op string, err error, retry func(context.Context) error) {
	c.logger.Error("fetch failed", "op", op, "error", err)
	c.mu.Lock()
	c.failed = &failure{op: op, err: err, retry: retry}
	c.mu.Unlock()
}

// clearLocked drops the recorded failure once the same operation succeeds.
func (c *Controller) clearLocked(op string) {
	if c.failed != nil && c.failed.op == op {
		c.failed = nil
	}
}

// cancelLoadLocked invalidates any in-flight page fetch.
func (c *Controller) cancelLoadLocked() {
	c.pageGen++
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
}

func (c *Controller) emit(ctx context.Context, ev Event) {
	if c.cfg.Recorder == nil {
		return
	}
	ev.SessionID = c.sessionID
	ev.CourseID = c.cfg.CourseID
	ev.StudentID = c.cfg.StudentID
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if err := c.cfg.Recorder.Record(context.WithoutCancel(ctx), ev); err != nil {
		c.logger.Warn("recording event failed", "kind", ev.Kind, "error", err)
	}
}
