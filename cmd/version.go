package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnpath/internal/courseapi"
	"github.com/abhisek/learnpath/internal/logging"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "learnpath", version)

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return nil
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.API.URL == "" {
			return fmt.Errorf("--check needs an api url")
		}
		client, err := courseapi.NewClient(cfg.ClientConfig(logging.Discard()))
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		v, err := client.CheckVersion(ctx)
		if err != nil {
			return err
		}
		if v == "" {
			v = "unknown"
		}
		fmt.Fprintf(out, "backend %s (minimum %s)\n", v, courseapi.MinAPIVersion)
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("check", false, "Also check the course backend's API version")
}
