package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/naming"
	"github.com/cuemby/fleetdeploy/pkg/storage"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded deploy runs",
	Long: `List deploy runs recorded in the local run history, newest first.

Without --app and --env every recorded run is listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := storage.NewBoltStore(cfg.StateDir)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer store.Close()

		fleet := ""
		if cfg.App != "" && cfg.Environment != "" {
			fleet = naming.Fleet(cfg.App, cfg.Environment)
		}
		runs, err := store.ListRuns(fleet)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}
		if limit > 0 && len(runs) > limit {
			runs = runs[:limit]
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tFLEET\tLAUNCH TEMPLATE\tSTATE\tDURATION\tERROR")
		for _, run := range runs {
			duration := "-"
			if !run.FinishedAt.IsZero() {
				duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				run.StartedAt.Local().Format(time.DateTime),
				run.Fleet,
				run.LaunchTemplate,
				formatRunState(run.State),
				duration,
				run.Error,
			)
		}
		return w.Flush()
	},
}

func init() {
	addTargetFlags(historyCmd.Flags())
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
}
