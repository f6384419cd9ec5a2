package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a course file into the local database",
	Long:  "Import reads a YAML course file (syllabus, pages, objectives and learner records) into the local database for --offline use. Re-importing a course replaces it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d lessons, %d pages, %d objectives, %d students\n",
			stats.CourseID, stats.Lessons, stats.Pages, stats.Objectives, stats.Students)
		return nil
	},
}
