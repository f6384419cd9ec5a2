package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnpath/internal/store"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show saved progress and recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.CourseID == "" {
			return fmt.Errorf("course id is required")
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		limit, _ := cmd.Flags().GetInt("events")

		snap, err := st.SnapshotRepo().Latest(ctx, cfg.CourseID, cfg.StudentID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Course %s, %s %s\n", cfg.CourseID, roleName(cfg.Role), cfg.StudentID)
		if snap == nil {
			fmt.Fprintln(out, "No saved progress yet.")
		} else {
			d := snap.Data
			fmt.Fprintf(out, "  Mastery:   %.0f%% (%d of %d objectives)\n", d.Progress, d.MasteredCount, d.ObjectiveCount)
			fmt.Fprintf(out, "  Coverage:  %.0f%% of subtopics visited\n", d.Coverage)
			if len(d.CompletedLessons) > 0 {
				fmt.Fprintf(out, "  Completed: %s\n", strings.Join(d.CompletedLessons, ", "))
			}
			fmt.Fprintf(out, "  Saved:     %s\n", snap.Timestamp.Local().Format("2006-01-02 15:04"))
		}

		if limit <= 0 {
			return nil
		}
		events, err := st.EventRepo().Events(ctx, store.QueryOpts{StudentID: cfg.StudentID})
		if err != nil {
			return err
		}
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
		if len(events) == 0 {
			return nil
		}
		fmt.Fprintln(out, "\nRecent activity:")
		for _, ev := range events {
			line := fmt.Sprintf("  %s  %-18s %s -> %s", ev.At.Local().Format("01-02 15:04"), ev.Kind, ev.From, ev.To)
			if ev.SubtopicID != "" {
				line += "  " + ev.SubtopicID
			}
			if ev.Detail != "" {
				line += "  (" + ev.Detail + ")"
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	progressCmd.Flags().Int("events", 10, "Number of recent events to show")
}
