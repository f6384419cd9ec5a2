package progress

import "github.com/abhisek/learnpath/internal/course"

// Tier buckets a preassessment score.
type Tier string

const (
	TierGreat  Tier = "great"
	TierGood   Tier = "good"
	TierFailed Tier = "failed"
)

const (
	greatMessage  = "Thank you for completing the pre-assessment test. You have sufficient knowledge and skills, but adaptive learning can help you sharpen them even more!"
	goodMessage   = "Not bad! You can make it, and adaptive learning will help you improve even further."
	failedMessage = "Thank you for completing the pre-assessment test. Unfortunately, you still need to strengthen your fundamental knowledge and skills. Adaptive learning can help you through it."
)

// Classification is the learner-facing summary of a preassessment score.
type Classification struct {
	Tier    Tier
	Percent float64
	Message string
}

// ClassifyPreassessment buckets score/total: great from 90%, good from 75%,
// failed below. A zero total is failed at 0%.
func ClassifyPreassessment(score, total int) Classification {
	pct := 0.0
	if total > 0 {
		pct = clamp(100 * float64(score) / float64(total))
	}
	switch {
	case pct >= 90:
		return Classification{Tier: TierGreat, Percent: pct, Message: greatMessage}
	case pct >= 75:
		return Classification{Tier: TierGood, Percent: pct, Message: goodMessage}
	default:
		return Classification{Tier: TierFailed, Percent: pct, Message: failedMessage}
	}
}

// LatestAttempt returns the most recent attempt, or nil when there is none.
// Ties keep the later entry in the list.
func LatestAttempt(attempts []course.PreassessmentAttempt) *course.PreassessmentAttempt {
	if len(attempts) == 0 {
		return nil
	}
	latest := 0
	for i := 1; i < len(attempts); i++ {
		if !attempts[i].TakenAt.Before(attempts[latest].TakenAt) {
			latest = i
		}
	}
	a := attempts[latest]
	return &a
}
