package progress

import "github.com/abhisek/learnpath/internal/course"

// Coverage returns the percentage of the syllabus' subtopics that have been
// visited this session. It is a secondary metric; the progress bar is driven
// by mastery. Visited IDs that are not part of the syllabus are ignored.
func Coverage(visited map[string]bool, lessons []course.Lesson) float64 {
	total, seen := 0, 0
	for _, l := range lessons {
		for _, t := range l.Topics {
			for _, st := range t.Subtopics {
				total++
				if visited[st.ID] {
					seen++
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return clamp(100 * float64(seen) / float64(total))
}
