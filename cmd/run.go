package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnpath/internal/app"
	"github.com/abhisek/learnpath/internal/config"
	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/courseapi"
	"github.com/abhisek/learnpath/internal/progression"
	"github.com/abhisek/learnpath/internal/store"
)

// keepSnapshots bounds the progress snapshot history.
const keepSnapshots = 50

// runApp resolves config, builds the course source and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, closeLog := openLogger(cfg, cmd.ErrOrStderr())
	defer closeLog()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	src, closeSrc, err := buildSource(ctx, cfg, st, logger)
	if err != nil {
		return err
	}
	defer closeSrc()

	ctrl := progression.New(src, progression.Config{
		CourseID:         cfg.CourseID,
		StudentID:        cfg.StudentID,
		Role:             cfg.Role,
		PreassessmentURL: cfg.PreassessmentURL,
		Logger:           logger,
		Recorder:         st.EventRepo(),
	})
	logger.Info("session started", "session", ctrl.SessionID(), "course", cfg.CourseID, "offline", cfg.Store.Offline)

	runErr := app.Run(app.Options{Controller: ctrl, Logger: logger})

	if err := saveSnapshot(context.WithoutCancel(ctx), st.SnapshotRepo(), cfg, ctrl); err != nil {
		logger.Warn("saving progress snapshot failed", "error", err)
	}
	return runErr
}

// buildSource returns the course source for cfg: the local store when
// offline, otherwise the HTTP client behind retries and, when configured,
// the Redis cache. The returned func releases the cache connection.
func buildSource(ctx context.Context, cfg config.Config, st *store.Store, logger *slog.Logger) (courseapi.Source, func(), error) {
	if cfg.Store.Offline {
		return st.Source(), func() {}, nil
	}

	client, err := courseapi.NewClient(cfg.ClientConfig(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("course API: %w", err)
	}
	if v, err := client.CheckVersion(ctx); err != nil {
		var incompatible *courseapi.IncompatibleVersionError
		if errors.As(err, &incompatible) {
			return nil, nil, err
		}
		logger.Warn("backend version check failed", "error", err)
	} else if v != "" {
		logger.Info("backend API", "version", v)
	}

	var src courseapi.Source = courseapi.WithResilience(client, cfg.ResilientConfig(logger))
	if cfg.Cache.URL == "" {
		return src, func() {}, nil
	}
	rdb, err := courseapi.NewRedisClient(ctx, cfg.Cache.URL)
	if err != nil {
		logger.Warn("content cache unavailable, continuing without it", "error", err)
		return src, func() {}, nil
	}
	return courseapi.WithCache(src, rdb, cfg.Cache.TTL, logger), func() { rdb.Close() }, nil
}

// saveSnapshot records where the learner left off.
func saveSnapshot(ctx context.Context, repo store.SnapshotRepo, cfg config.Config, ctrl *progression.Controller) error {
	snap := ctrl.Snapshot()
	if !snap.Loaded {
		return nil
	}
	data := store.SnapshotData{
		CourseID:       cfg.CourseID,
		StudentID:      cfg.StudentID,
		SessionID:      ctrl.SessionID(),
		Progress:       snap.Progress,
		Coverage:       snap.Coverage,
		MasteredCount:  snap.MasteredCount,
		ObjectiveCount: snap.ObjectiveCount,
	}
	for _, l := range snap.Lessons {
		if l.Completed {
			data.CompletedLessons = append(data.CompletedLessons, l.ID)
		}
	}
	if err := repo.Save(ctx, &store.Snapshot{Data: data}); err != nil {
		return err
	}
	return repo.Prune(ctx, keepSnapshots)
}

// roleName is the human label for a role.
func roleName(r course.Role) string {
	if r.IsStudent() {
		return "student"
	}
	return "teacher"
}
