package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/cloud/aws"
	"github.com/cuemby/fleetdeploy/pkg/deploy"
	"github.com/cuemby/fleetdeploy/pkg/log"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the fleet and load balancer state for an application",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.App == "" || cfg.Environment == "" {
			return fmt.Errorf("--app and --env are required")
		}

		provider, err := aws.New(cmd.Context(), cfg.Region)
		if err != nil {
			return err
		}

		deployer := deploy.NewDeployer(provider, deploy.Options{Logger: log.WithComponent("deploy")})
		status, err := deployer.GetDeploymentStatus(cmd.Context(), cfg.Names(time.Now()))
		if err != nil {
			return err
		}

		fmt.Printf("Fleet: %s\n", status.Fleet)
		fmt.Printf("  Launch template: %s\n", status.LaunchTemplate)
		fmt.Printf("  Capacity: desired=%d min=%d max=%d\n", status.Desired, status.Min, status.Max)
		fmt.Printf("  Members: %d (%d ready, %d in load balancer)\n", status.TotalMembers, status.ReadyMembers, status.Admitted)
		if len(status.Suspended) > 0 {
			fmt.Printf("  Suspended processes: %s\n", strings.Join(status.Suspended, ", "))
		}

		templates := make([]string, 0, len(status.Templates))
		for t := range status.Templates {
			templates = append(templates, t)
		}
		sort.Strings(templates)
		for _, t := range templates {
			fmt.Printf("    %s: %d\n", t, status.Templates[t])
		}

		fmt.Printf("Load balancer: %s\n", status.DNSName)
		return nil
	},
}

func init() {
	addTargetFlags(statusCmd.Flags())
}
