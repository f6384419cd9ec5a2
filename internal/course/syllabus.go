package course

import (
	"fmt"
	"log/slog"
	"sort"
)

// QuizIDFor returns the derived quiz identifier for the lesson at index i.
func QuizIDFor(i int) string {
	return fmt.Sprintf("Lesson %d Quiz", i+1)
}

// BuildLessons normalizes a course's syllabus into the ordered lesson tree.
//
// Lessons, topics and subtopics are ordered by their Order field (stable, so
// equal orders keep backend order). Each lesson gets a derived quiz ID based on
// its position and starts not completed. A course without a syllabus produces
// an empty tree; the caller renders an empty syllabus rather than failing.
func BuildLessons(c *Course, logger *slog.Logger) []Lesson {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil || c.Syllabus == nil {
		id := ""
		if c != nil {
			id = c.ID
		}
		logger.Warn("course has no syllabus", "course_id", id)
		return nil
	}

	lessons := make([]Lesson, len(c.Syllabus.Lessons))
	copy(lessons, c.Syllabus.Lessons)
	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].Order < lessons[j].Order
	})

	for i := range lessons {
		lessons[i].Topics = sortTopics(lessons[i].Topics)
		lessons[i].QuizID = QuizIDFor(i)
		lessons[i].Completed = false
	}
	return lessons
}

func sortTopics(in []Topic) []Topic {
	topics := make([]Topic, len(in))
	copy(topics, in)
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Order < topics[j].Order
	})
	for i := range topics {
		subs := make([]Subtopic, len(topics[i].Subtopics))
		copy(subs, topics[i].Subtopics)
		sort.SliceStable(subs, func(a, b int) bool {
			return subs[a].Order < subs[b].Order
		})
		topics[i].Subtopics = subs
	}
	return topics
}

// TotalSubtopics counts subtopics across all lessons.
func TotalSubtopics(lessons []Lesson) int {
	n := 0
	for _, l := range lessons {
		n += l.SubtopicCount()
	}
	return n
}

// LessonIndexForSubtopic returns the index of the lesson owning the subtopic,
// or -1 when no lesson does.
func LessonIndexForSubtopic(lessons []Lesson, subtopicID string) int {
	for i, l := range lessons {
		if l.HasSubtopic(subtopicID) {
			return i
		}
	}
	return -1
}

// AllCompleted reports whether every lesson is completed. An empty list is
// trivially complete.
func AllCompleted(lessons []Lesson) bool {
	for _, l := range lessons {
		if !l.Completed {
			return false
		}
	}
	return true
}
