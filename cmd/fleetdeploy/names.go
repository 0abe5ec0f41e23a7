package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Print the resource names a deploy would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.App == "" || cfg.Environment == "" || cfg.Version == "" {
			return fmt.Errorf("--app, --env and --version are required")
		}

		names := cfg.Names(time.Now())
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Fleet:\t%s\n", names.Fleet)
		fmt.Fprintf(w, "Launch template:\t%s\n", names.LaunchTemplate)
		fmt.Fprintf(w, "Image:\t%s\n", names.Image)
		fmt.Fprintf(w, "Key pair:\t%s\n", names.KeyPair)
		fmt.Fprintf(w, "Load balancer:\t%s\n", names.LoadBalancer)
		fmt.Fprintf(w, "Security group:\t%s\n", names.SecurityGroup)
		fmt.Fprintf(w, "Instance profile:\t%s\n", names.InstanceProfile)
		return w.Flush()
	},
}

func init() {
	addTargetFlags(namesCmd.Flags())
	namesCmd.Flags().String("version", "", "Release version")
}
