package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnpath/internal/config"
	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/logging"
	"github.com/abhisek/learnpath/internal/store"
)

// loadConfig resolves settings from the config file, the environment and
// then command-line flags (highest priority).
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	setString := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	setString("db", &cfg.Store.Path)
	setString("course", &cfg.CourseID)
	setString("student", &cfg.StudentID)
	setString("api", &cfg.API.URL)
	setString("cache", &cfg.Cache.URL)
	setString("log-level", &cfg.Log.Level)
	setString("preassessment-url", &cfg.PreassessmentURL)
	if flags.Changed("role") {
		r, _ := flags.GetString("role")
		cfg.Role = course.Role(strings.ToUpper(r))
	}
	if flags.Changed("offline") {
		cfg.Store.Offline, _ = flags.GetBool("offline")
	}
	return cfg, nil
}

// openLogger opens the log file named by cfg. Logging problems never stop
// the app; they fall back to a discarding logger.
func openLogger(cfg config.Config, stderr io.Writer) (*slog.Logger, func()) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	logger, closer, err := logging.Open(logging.Options{Level: level, Format: cfg.Log.Format, Path: cfg.Log.Path})
	if err != nil {
		fmt.Fprintln(stderr, "warning: logging disabled:", err)
		return logging.Discard(), func() {}
	}
	return logger, func() { closer.Close() }
}

// openStore opens the database at cfg.Store.Path, creating its directory.
func openStore(cfg config.Config) (*store.Store, error) {
	if err := store.EnsureDir(cfg.Store.Path); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
