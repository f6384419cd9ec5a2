package courseapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/abhisek/learnpath/internal/course"
)

// ResilientConfig configures the retry and circuit breaker decorator.
type ResilientConfig struct {
	// MaxAttempts is the total number of tries per request. Default: 3.
	MaxAttempts int

	// InitialDelay is the first backoff wait. Default: 500ms.
	InitialDelay time.Duration

	// MaxDelay caps the backoff wait. Default: 5s.
	MaxDelay time.Duration

	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Zero disables the breaker.
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open. Default: 30s.
	OpenTimeout time.Duration

	Logger *slog.Logger
}

// DefaultResilientConfig returns conservative defaults for an interactive client.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxAttempts:      3,
		InitialDelay:     500 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Resilient wraps a Source with retry and circuit breaking. Transient
// failures (network errors, 429 and 5xx) are retried; anything else is
// returned immediately.
type Resilient struct {
	inner   Source
	retrier retry.Retry[any]
	breaker circuitbreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

var _ Source = (*Resilient)(nil)

// WithResilience wraps src with retry and circuit breaking.
func WithResilience(src Source, cfg ResilientConfig) *Resilient {
	def := DefaultResilientConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Resilient{inner: src, logger: logger}

	r.retrier = retry.New[any](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})

	if cfg.FailureThreshold > 0 {
		threshold := cfg.FailureThreshold
		r.breaker = circuitbreaker.New[any](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= threshold
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("course API circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	return r
}

// isRetryable reports whether err is a transient failure.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var inv *InvalidPayloadError
	if errors.As(err, &inv) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// Transport-level failures.
	return true
}

// call runs op through the retrier and, when enabled, the breaker.
func call[T any](ctx context.Context, r *Resilient, op func(context.Context) (T, error)) (T, error) {
	attempt := func(ctx context.Context) (any, error) {
		v, err := op(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	withRetry := func(ctx context.Context) (any, error) {
		return r.retrier.Do(ctx, attempt)
	}

	var (
		v   any
		err error
	)
	if r.breaker != nil {
		v, err = r.breaker.Execute(ctx, withRetry)
	} else {
		v, err = withRetry(ctx)
	}

	var zero T
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return out, nil
}

func (r *Resilient) Course(ctx context.Context, courseID string) (*course.Course, error) {
	return call(ctx, r, func(ctx context.Context) (*course.Course, error) {
		return r.inner.Course(ctx, courseID)
	})
}

func (r *Resilient) Pages(ctx context.Context, subtopicID string, role course.Role, studentID string) (*PagesResponse, error) {
	return call(ctx, r, func(ctx context.Context) (*PagesResponse, error) {
		return r.inner.Pages(ctx, subtopicID, role, studentID)
	})
}

func (r *Resilient) Page(ctx context.Context, pageID string) (*course.Page, error) {
	return call(ctx, r, func(ctx context.Context) (*course.Page, error) {
		return r.inner.Page(ctx, pageID)
	})
}

func (r *Resilient) Mastery(ctx context.Context, studentID string) ([]course.MasteryRecord, error) {
	return call(ctx, r, func(ctx context.Context) ([]course.MasteryRecord, error) {
		return r.inner.Mastery(ctx, studentID)
	})
}

func (r *Resilient) PreassessmentAttempts(ctx context.Context, studentID, courseID string) ([]course.PreassessmentAttempt, error) {
	return call(ctx, r, func(ctx context.Context) ([]course.PreassessmentAttempt, error) {
		return r.inner.PreassessmentAttempts(ctx, studentID, courseID)
	})
}

func (r *Resilient) QuizResult(ctx context.Context, quizID, studentID string) (*course.QuizResult, error) {
	return call(ctx, r, func(ctx context.Context) (*course.QuizResult, error) {
		return r.inner.QuizResult(ctx, quizID, studentID)
	})
}
