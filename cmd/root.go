package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "learnpath",
	Short: "Terminal client for adaptive courses",
	Long:  "learnpath walks a learner through a course syllabus: lesson pages, lesson quizzes, mastery progress and the preassessment-gated final exam.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "Path to TOML config file (default $XDG_CONFIG_HOME/learnpath/config.toml)")
	f.String("db", "", "Path to SQLite database file (overrides LEARNPATH_DB env var)")
	f.String("course", "", "Course ID")
	f.String("student", "", "Student ID")
	f.String("role", "", "Account role: S (student) or T (teacher)")
	f.String("api", "", "Course backend API base URL")
	f.String("cache", "", "Redis URL for the course content cache")
	f.Bool("offline", false, "Serve course data from the local database")
	f.String("preassessment-url", "", "Base URL of the external preassessment")
	f.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(versionCmd)
}
