// Package progress derives learner progress from mastery records and
// preassessment attempts.
package progress

import (
	"math"

	"github.com/abhisek/learnpath/internal/course"
)

// MasteryThreshold is the mastery level at which an objective counts as mastered.
const MasteryThreshold = 60.0

// ObjectiveStatus is the display classification of a learning objective.
type ObjectiveStatus string

const (
	StatusMastered    ObjectiveStatus = "mastered"
	StatusNotMastered ObjectiveStatus = "not-mastered"
)

// IsMastered reports whether a single record meets the threshold.
func IsMastered(r course.MasteryRecord) bool {
	return r.Level >= MasteryThreshold
}

// Progress returns the percentage of mastered records. An empty set is 0.
func Progress(records []course.MasteryRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	mastered := 0
	for _, r := range records {
		if IsMastered(r) {
			mastered++
		}
	}
	return clamp(100 * float64(mastered) / float64(len(records)))
}

func clamp(p float64) float64 {
	switch {
	case p < 0 || math.IsNaN(p):
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Aggregator holds the latest mastery records of a student and the progress
// derived from them. Each Apply replaces the previous set.
type Aggregator struct {
	records  []course.MasteryRecord
	progress float64
	loaded   bool
}

// Apply stores records and recomputes progress from scratch.
func (a *Aggregator) Apply(records []course.MasteryRecord) {
	a.records = append([]course.MasteryRecord(nil), records...)
	a.progress = Progress(a.records)
	a.loaded = true
}

// Loaded reports whether any mastery fetch has been applied.
func (a *Aggregator) Loaded() bool { return a.loaded }

// Progress returns the mastery percentage in [0,100].
func (a *Aggregator) Progress() float64 { return a.progress }

// Counts returns the number of mastered records and the total.
func (a *Aggregator) Counts() (mastered, total int) {
	for _, r := range a.records {
		if IsMastered(r) {
			mastered++
		}
	}
	return mastered, len(a.records)
}

// Records returns a copy of the stored records.
func (a *Aggregator) Records() []course.MasteryRecord {
	return append([]course.MasteryRecord(nil), a.records...)
}

// Status classifies an objective. Any record at or above the threshold
// makes it mastered.
func (a *Aggregator) Status(objectiveID int) ObjectiveStatus {
	for _, r := range a.records {
		if r.ObjectiveID == objectiveID && IsMastered(r) {
			return StatusMastered
		}
	}
	return StatusNotMastered
}
