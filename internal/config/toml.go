package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/abhisek/learnpath/internal/course"
)

// FileConfig represents the TOML configuration file. Unset keys leave the
// defaults alone.
type FileConfig struct {
	Course           *string      `toml:"course"`
	Student          *string      `toml:"student"`
	Role             *string      `toml:"role"`
	PreassessmentURL *string      `toml:"preassessment-url"`
	API              APISection   `toml:"api"`
	Cache            CacheSection `toml:"cache"`
	Store            StoreSection `toml:"store"`
	Log              LogSection   `toml:"log"`
}

// APISection maps [api].
type APISection struct {
	URL              *string `toml:"url"`
	Token            *string `toml:"token"`
	Timeout          *string `toml:"timeout"`
	RetryAttempts    *int    `toml:"retry-attempts"`
	RetryDelay       *string `toml:"retry-delay"`
	RetryMaxDelay    *string `toml:"retry-max-delay"`
	BreakerThreshold *int    `toml:"breaker-threshold"`
	BreakerTimeout   *string `toml:"breaker-timeout"`
}

// CacheSection maps [cache].
type CacheSection struct {
	URL *string `toml:"url"`
	TTL *string `toml:"ttl"`
}

// StoreSection maps [store].
type StoreSection struct {
	Path    *string `toml:"path"`
	Offline *bool   `toml:"offline"`
}

// LogSection maps [log].
type LogSection struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
	File   *string `toml:"file"`
}

// LoadFile reads a TOML config from the given path. Missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return fc, nil
}

func (fc FileConfig) apply(c *Config) error {
	str := func(src *string, dst *string) {
		if src != nil {
			*dst = *src
		}
	}
	dur := func(key string, src *string, dst *time.Duration) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str(fc.Course, &c.CourseID)
	str(fc.Student, &c.StudentID)
	if fc.Role != nil {
		c.Role = course.Role(strings.ToUpper(*fc.Role))
	}
	str(fc.PreassessmentURL, &c.PreassessmentURL)

	str(fc.API.URL, &c.API.URL)
	str(fc.API.Token, &c.API.Token)
	if fc.API.RetryAttempts != nil {
		c.Retry.MaxAttempts = *fc.API.RetryAttempts
	}
	if fc.API.BreakerThreshold != nil {
		c.Retry.FailureThreshold = *fc.API.BreakerThreshold
	}

	str(fc.Cache.URL, &c.Cache.URL)
	str(fc.Store.Path, &c.Store.Path)
	if fc.Store.Offline != nil {
		c.Store.Offline = *fc.Store.Offline
	}

	str(fc.Log.Level, &c.Log.Level)
	str(fc.Log.Format, &c.Log.Format)
	str(fc.Log.File, &c.Log.Path)

	for _, d := range []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"api.timeout", fc.API.Timeout, &c.API.Timeout},
		{"api.retry-delay", fc.API.RetryDelay, &c.Retry.InitialDelay},
		{"api.retry-max-delay", fc.API.RetryMaxDelay, &c.Retry.MaxDelay},
		{"api.breaker-timeout", fc.API.BreakerTimeout, &c.Retry.OpenTimeout},
		{"cache.ttl", fc.Cache.TTL, &c.Cache.TTL},
	} {
		if err := dur(d.key, d.src, d.dst); err != nil {
			return err
		}
	}
	return nil
}
