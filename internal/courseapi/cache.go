package courseapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/learnpath/internal/course"
)

const cacheKeyPrefix = "learnpath:"

// ParseCacheURL validates a Redis connection URL.
func ParseCacheURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := ParseCacheURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}
	return client, nil
}

// Cached serves authored content (courses, pages, non-student page lists)
// from Redis. Learner-specific reads (mastery, attempts, quiz results and
// student-scoped page lists) always go to the inner source.
type Cached struct {
	inner  Source
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

var _ Source = (*Cached)(nil)

// WithCache wraps src with a Redis read-through cache.
func WithCache(src Source, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: src, rdb: rdb, ttl: ttl, logger: logger}
}

func courseKey(id string) string   { return cacheKeyPrefix + "course:" + id }
func pageKey(id string) string     { return cacheKeyPrefix + "page:" + id }
func subtopicKey(id string) string { return cacheKeyPrefix + "pages:" + id }

// readThrough returns the cached value under key or loads, stores and
// returns it. Cache failures degrade to a direct load.
func readThrough[T any](ctx context.Context, c *Cached, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			return v, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}

	if data, jerr := json.Marshal(v); jerr == nil {
		if serr := c.rdb.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			c.logger.Warn("cache write failed", "key", key, "error", serr)
		}
	}
	return v, nil
}

func (c *Cached) Course(ctx context.Context, courseID string) (*course.Course, error) {
	return readThrough(ctx, c, courseKey(courseID), func(ctx context.Context) (*course.Course, error) {
		return c.inner.Course(ctx, courseID)
	})
}

func (c *Cached) Pages(ctx context.Context, subtopicID string, role course.Role, studentID string) (*PagesResponse, error) {
	if role.IsStudent() {
		return c.inner.Pages(ctx, subtopicID, role, studentID)
	}
	return readThrough(ctx, c, subtopicKey(subtopicID), func(ctx context.Context) (*PagesResponse, error) {
		return c.inner.Pages(ctx, subtopicID, role, studentID)
	})
}

func (c *Cached) Page(ctx context.Context, pageID string) (*course.Page, error) {
	return readThrough(ctx, c, pageKey(pageID), func(ctx context.Context) (*course.Page, error) {
		return c.inner.Page(ctx, pageID)
	})
}

func (c *Cached) Mastery(ctx context.Context, studentID string) ([]course.MasteryRecord, error) {
	return c.inner.Mastery(ctx, studentID)
}

func (c *Cached) PreassessmentAttempts(ctx context.Context, studentID, courseID string) ([]course.PreassessmentAttempt, error) {
	return c.inner.PreassessmentAttempts(ctx, studentID, courseID)
}

func (c *Cached) QuizResult(ctx context.Context, quizID, studentID string) (*course.QuizResult, error) {
	return c.inner.QuizResult(ctx, quizID, studentID)
}
