// Package config resolves learnpath settings from defaults, an optional TOML
// file and LEARNPATH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/courseapi"
)

// Config holds everything needed to start a learning session.
type Config struct {
	CourseID  string
	StudentID string
	Role      course.Role

	API   APIConfig
	Retry RetryConfig
	Cache CacheConfig
	Store StoreConfig
	Log   LogConfig

	// PreassessmentURL is the external preassessment page handed to the
	// learner while the exam gate is closed.
	PreassessmentURL string
}

// APIConfig describes the course backend.
type APIConfig struct {
	URL     string
	Token   string
	Timeout time.Duration // Default: 15s.
}

// RetryConfig configures retry and circuit breaking around the backend.
type RetryConfig struct {
	MaxAttempts      int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	FailureThreshold int
	OpenTimeout      time.Duration
}

// CacheConfig enables the Redis read-through cache when URL is set.
type CacheConfig struct {
	URL string
	TTL time.Duration // Default: 10m.
}

// StoreConfig locates the local database.
type StoreConfig struct {
	Path string

	// Offline serves course data from the local database instead of the API.
	Offline bool
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Path   string
}

// Default returns a Config with sensible defaults.
func Default() Config {
	r := courseapi.DefaultResilientConfig()
	return Config{
		Role: course.RoleStudent,
		API: APIConfig{
			Timeout: 15 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:      r.MaxAttempts,
			InitialDelay:     r.InitialDelay,
			MaxDelay:         r.MaxDelay,
			FailureThreshold: r.FailureThreshold,
			OpenTimeout:      r.OpenTimeout,
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		Store: StoreConfig{
			Path: DefaultDBPath(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Path:   DefaultLogPath(),
		},
	}
}

// Load builds a Config from defaults, the TOML file at path (a missing file
// is not an error) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := fc.apply(&cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LEARNPATH_* environment variables.
func (c *Config) ApplyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	setDuration := func(key string, dst *time.Duration) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	setInt := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}

	setString("LEARNPATH_COURSE", &c.CourseID)
	setString("LEARNPATH_STUDENT", &c.StudentID)
	if v := os.Getenv("LEARNPATH_ROLE"); v != "" {
		c.Role = course.Role(strings.ToUpper(v))
	}

	setString("LEARNPATH_API_URL", &c.API.URL)
	setString("LEARNPATH_API_TOKEN", &c.API.Token)
	setDuration("LEARNPATH_API_TIMEOUT", &c.API.Timeout)

	setInt("LEARNPATH_RETRY_ATTEMPTS", &c.Retry.MaxAttempts)
	setInt("LEARNPATH_BREAKER_THRESHOLD", &c.Retry.FailureThreshold)

	setString("LEARNPATH_CACHE_URL", &c.Cache.URL)
	setDuration("LEARNPATH_CACHE_TTL", &c.Cache.TTL)

	setString("LEARNPATH_DB", &c.Store.Path)
	if v := os.Getenv("LEARNPATH_OFFLINE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LEARNPATH_OFFLINE: %w", err))
		} else {
			c.Store.Offline = b
		}
	}

	setString("LEARNPATH_PREASSESSMENT_URL", &c.PreassessmentURL)
	setString("LEARNPATH_LOG_LEVEL", &c.Log.Level)
	setString("LEARNPATH_LOG_FORMAT", &c.Log.Format)
	setString("LEARNPATH_LOG_FILE", &c.Log.Path)

	return errors.Join(errs...)
}

// Validate checks the config and returns every problem found.
func (c Config) Validate() error {
	var errs []error
	if c.CourseID == "" {
		errs = append(errs, errors.New("course id is required"))
	}
	switch c.Role {
	case course.RoleStudent:
		if c.StudentID == "" {
			errs = append(errs, errors.New("student id is required for the student role"))
		}
	case course.RoleTeacher:
	default:
		errs = append(errs, fmt.Errorf("unknown role %q (want S or T)", c.Role))
	}

	if !c.Store.Offline {
		if err := checkHTTPURL("api url", c.API.URL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Store.Offline && c.Store.Path == "" {
		errs = append(errs, errors.New("offline mode needs a database path"))
	}
	if c.PreassessmentURL != "" {
		if err := checkHTTPURL("preassessment url", c.PreassessmentURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Cache.URL != "" {
		if _, err := courseapi.ParseCacheURL(c.Cache.URL); err != nil {
			errs = append(errs, fmt.Errorf("cache url: %w", err))
		}
		if c.Cache.TTL <= 0 {
			errs = append(errs, errors.New("cache ttl must be positive"))
		}
	}

	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	if c.Retry.FailureThreshold < 0 {
		errs = append(errs, errors.New("breaker threshold must not be negative"))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format))
	}
	return errors.Join(errs...)
}

func checkHTTPURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s %q must be an absolute http(s) URL", name, raw)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// ClientConfig returns the HTTP client settings.
func (c Config) ClientConfig(logger *slog.Logger) courseapi.ClientConfig {
	return courseapi.ClientConfig{
		BaseURL: c.API.URL,
		Timeout: c.API.Timeout,
		Token:   c.API.Token,
		Logger:  logger,
	}
}

// ResilientConfig returns the retry and breaker settings.
func (c Config) ResilientConfig(logger *slog.Logger) courseapi.ResilientConfig {
	return courseapi.ResilientConfig{
		MaxAttempts:      c.Retry.MaxAttempts,
		InitialDelay:     c.Retry.InitialDelay,
		MaxDelay:         c.Retry.MaxDelay,
		FailureThreshold: c.Retry.FailureThreshold,
		OpenTimeout:      c.Retry.OpenTimeout,
		Logger:           logger,
	}
}
