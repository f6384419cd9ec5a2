package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/pager"
	"github.com/abhisek/learnpath/internal/progress"
)

// SelectSubtopic opens a subtopic's content from the syllabus. The view
// switches only once the pages arrive. A newer selection cancels an older
// one that is still in flight, so the last selection wins. An empty ID is
// ignored.
func (c *Controller) SelectSubtopic(ctx context.Context, subtopicID string) error {
	if subtopicID == "" {
		c.logger.Warn("select subtopic ignored: empty subtopic id")
		return nil
	}

	c.mu.Lock()
	if c.view != ViewSyllabus {
		from := c.view
		c.mu.Unlock()
		return invalid("select subtopic", from)
	}
	c.cancelLoadLocked()
	gen := c.pageGen
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	c.inflight++
	c.mu.Unlock()

	res, err := pager.Fetch(fetchCtx, c.src, pager.Request{
		SubtopicID: subtopicID,
		Role:       c.cfg.Role,
		StudentID:  c.cfg.StudentID,
	})

	c.mu.Lock()
	c.inflight--
	if gen != c.pageGen {
		c.mu.Unlock()
		cancel()
		c.logger.Debug("discarding superseded page load", "subtopic", subtopicID)
		return ErrSuperseded
	}
	c.cancelLoad = nil
	cancel()
	if err != nil {
		c.mu.Unlock()
		c.fail("select subtopic", err, func(ctx context.Context) error {
			return c.SelectSubtopic(ctx, subtopicID)
		})
		return err
	}

	c.pages.Apply(res)
	c.pageMastery.Apply(res.Masteries)
	c.view = ViewLessonContent
	c.activeLesson = course.LessonIndexForSubtopic(c.lessons, subtopicID)
	if c.cfg.Role.IsStudent() {
		c.visited[subtopicID] = true
	}
	c.quizResult = nil
	lesson := c.activeLesson
	c.clearLocked("select subtopic")
	c.mu.Unlock()

	c.logger.Info("subtopic opened", "subtopic", subtopicID, "pages", len(res.Pages), "lesson", lesson)
	c.emit(ctx, Event{Kind: EventSubtopicOpened, From: ViewSyllabus, To: ViewLessonContent, LessonIndex: lesson, SubtopicID: subtopicID})
	return nil
}

// GoToPage shows the page at ordinal. An ordinal without a mapped page
// moves the visible ordinal, shows no content and returns pager.ErrNoPage.
// A failed page fetch leaves the previous page visible.
func (c *Controller) GoToPage(ctx context.Context, ordinal int) error {
	c.mu.Lock()
	if c.view != ViewLessonContent {
		from := c.view
		c.mu.Unlock()
		return invalid("go to page", from)
	}
	pageID, ok := c.pages.Lookup(ordinal)
	if !ok {
		err := c.pages.ShowMissing(ordinal)
		c.mu.Unlock()
		c.logger.Warn("page has no content", "ordinal", ordinal, "error", err)
		return err
	}
	gen := c.pageGen
	subtopicID := c.pages.SubtopicID()
	c.inflight++
	c.mu.Unlock()

	page, err := c.src.Page(ctx, pageID)

	c.mu.Lock()
	c.inflight--
	if gen != c.pageGen || c.view != ViewLessonContent {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		err = fmt.Errorf("load page %s: %w", pageID, err)
		c.fail("go to page", err, func(ctx context.Context) error {
			return c.GoToPage(ctx, ordinal)
		})
		return err
	}
	c.pages.Show(ordinal, page)
	lesson := c.activeLesson
	c.clearLocked("go to page")
	c.mu.Unlock()

	c.emit(ctx, Event{Kind: EventPageViewed, From: ViewLessonContent, To: ViewLessonContent, LessonIndex: lesson, SubtopicID: subtopicID, Detail: pageID})
	return nil
}

// CompleteLesson is the last-page quiz trigger: it marks the active lesson
// completed and opens its quiz.
func (c *Controller) CompleteLesson(ctx context.Context) error {
	c.mu.Lock()
	if c.view != ViewLessonContent {
		from := c.view
		c.mu.Unlock()
		return invalid("complete lesson", from)
	}
	if !c.pages.OnLastPage() {
		c.mu.Unlock()
		return ErrNotLastPage
	}
	if c.activeLesson < 0 || c.activeLesson >= len(c.lessons) {
		c.mu.Unlock()
		return fmt.Errorf("complete lesson: subtopic %s is not part of any lesson: %w",
			c.pages.SubtopicID(), ErrInvalidTransition)
	}
	c.lessons[c.activeLesson].Completed = true
	c.view = ViewQuiz
	c.quizResult = nil
	subtopicID := c.pages.SubtopicID()
	c.pages.Reset()
	c.cancelLoadLocked()
	lesson := c.activeLesson
	c.mu.Unlock()

	c.logger.Info("lesson completed", "lesson", lesson)
	c.emit(ctx, Event{Kind: EventLessonCompleted, From: ViewLessonContent, To: ViewQuiz, LessonIndex: lesson, SubtopicID: subtopicID})
	return nil
}

// TakeQuiz opens the quiz of the lesson at lessonIndex from the syllabus.
func (c *Controller) TakeQuiz(ctx context.Context, lessonIndex int) error {
	c.mu.Lock()
	if c.view != ViewSyllabus {
		from := c.view
		c.mu.Unlock()
		return invalid("take quiz", from)
	}
	if lessonIndex < 0 || lessonIndex >= len(c.lessons) {
		n := len(c.lessons)
		c.mu.Unlock()
		return fmt.Errorf("take quiz: lesson %d of %d: %w", lessonIndex, n, ErrInvalidTransition)
	}
	c.cancelLoadLocked()
	c.activeLesson = lessonIndex
	c.view = ViewQuiz
	c.quizResult = nil
	c.mu.Unlock()

	c.emit(ctx, Event{Kind: EventQuizStarted, From: ViewSyllabus, To: ViewQuiz, LessonIndex: lessonIndex})
	return nil
}

// TakeExam opens the final exam. The preassessment gate must be open.
func (c *Controller) TakeExam(ctx context.Context) error {
	c.mu.Lock()
	if c.view != ViewSyllabus {
		from := c.view
		c.mu.Unlock()
		return invalid("take exam", from)
	}
	if !c.gate.ExamOpen() {
		c.mu.Unlock()
		return ErrGateClosed
	}
	c.cancelLoadLocked()
	c.view = ViewExam
	c.quizResult = nil
	lesson := c.activeLesson
	c.mu.Unlock()

	c.emit(ctx, Event{Kind: EventExamStarted, From: ViewSyllabus, To: ViewExam, LessonIndex: lesson})
	return nil
}

// StartPreassessment returns where to send the learner for the external
// preassessment. It is offered only while the gate is closed; the host
// must call RefreshGate when the learner comes back.
func (c *Controller) StartPreassessment(ctx context.Context) (PreassessmentTarget, error) {
	c.mu.Lock()
	if c.view != ViewSyllabus || c.gate.ExamOpen() {
		from := c.view
		c.mu.Unlock()
		return PreassessmentTarget{}, invalid("start preassessment", from)
	}
	c.mu.Unlock()

	target := c.preassessmentTarget()
	c.logger.Info("handing off to preassessment", "url", target.URL)
	c.emit(ctx, Event{Kind: EventPreassessment, From: ViewSyllabus, To: ViewSyllabus, LessonIndex: -1, Detail: target.URL})
	return target, nil
}

// BackToSyllabus leaves any content view for the syllabus and clears the
// quiz result.
func (c *Controller) BackToSyllabus(ctx context.Context) error {
	c.mu.Lock()
	from := c.view
	if from == ViewSyllabus {
		c.mu.Unlock()
		return invalid("back to syllabus", from)
	}
	c.cancelLoadLocked()
	c.view = ViewSyllabus
	c.quizResult = nil
	c.activeLesson = -1
	c.pages.Reset()
	c.pageMastery = progress.Aggregator{}
	c.mu.Unlock()

	c.emit(ctx, Event{Kind: EventReturnedSyllabus, From: from, To: ViewSyllabus, LessonIndex: -1})
	return nil
}

// ResultsAvailable fetches and shows the active lesson's quiz result. A
// passed quiz marks the lesson completed.
func (c *Controller) ResultsAvailable(ctx context.Context) error {
	c.mu.Lock()
	if c.view != ViewQuiz || c.activeLesson < 0 || c.activeLesson >= len(c.lessons) {
		from := c.view
		c.mu.Unlock()
		return invalid("results available", from)
	}
	lesson := c.activeLesson
	quizID := c.lessons[lesson].QuizID
	c.inflight++
	c.mu.Unlock()

	result, err := c.src.QuizResult(ctx, quizID, c.cfg.StudentID)

	c.mu.Lock()
	c.inflight--
	if c.view != ViewQuiz || c.activeLesson != lesson {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		err = fmt.Errorf("load result of %q: %w", quizID, err)
		c.fail("quiz result", err, c.ResultsAvailable)
		return err
	}
	if result == nil {
		result = &course.QuizResult{}
	}
	c.quizResult = result
	if result.Passed {
		c.lessons[lesson].Completed = true
	}
	c.view = ViewQuizResult
	c.clearLocked("quiz result")
	c.mu.Unlock()

	c.logger.Info("quiz result", "quiz", quizID, "score", result.Score, "total", result.TotalQuestions, "passed", result.Passed)
	c.emit(ctx, Event{Kind: EventQuizResult, From: ViewQuiz, To: ViewQuizResult, LessonIndex: lesson,
		Detail: fmt.Sprintf("%d/%d passed=%t", result.Score, result.TotalQuestions, result.Passed)})
	return nil
}

// TryAgain advances to the next lesson's quiz, or to the syllabus after the
// last lesson. It is identical to NextLesson.
func (c *Controller) TryAgain(ctx context.Context) error {
	return c.advance(ctx, "try again")
}

// NextLesson advances to the next lesson's quiz, or to the syllabus after
// the last lesson.
func (c *Controller) NextLesson(ctx context.Context) error {
	return c.advance(ctx, "next lesson")
}

func (c *Controller) advance(ctx context.Context, op string) error {
	c.mu.Lock()
	from := c.view
	if from != ViewQuizResult && from != ViewExam {
		c.mu.Unlock()
		return invalid(op, from)
	}
	c.quizResult = nil
	next := c.activeLesson + 1
	if next < len(c.lessons) {
		c.activeLesson = next
		c.view = ViewQuiz
	} else {
		c.activeLesson = -1
		c.view = ViewSyllabus
		next = -1
	}
	to := c.view
	c.mu.Unlock()

	kind := EventQuizStarted
	if to == ViewSyllabus {
		kind = EventReturnedSyllabus
	}
	c.emit(ctx, Event{Kind: kind, From: from, To: to, LessonIndex: next, Detail: op})
	return nil
}

// IsInvalidTransition reports whether err rejected an operation without
// changing state.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrGateClosed) || errors.Is(err, ErrNotLastPage)
}
