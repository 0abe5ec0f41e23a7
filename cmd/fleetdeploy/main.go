package main

import (
	"fmt"
	"os"

	"github.com/cuemby/fleetdeploy/pkg/config"
	"github.com/cuemby/fleetdeploy/pkg/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fleetdeploy",
	Short: "fleetdeploy - Rolling image deploys for autoscaling fleets",
	Long: `fleetdeploy rolls a new machine image onto an autoscaling group behind
a load balancer, one instance at a time, without dropping capacity.

It registers a launch template for the release, grows the fleet by one,
waits for the new instance to pass health checks and enter the load
balancer, then retires every instance still on an older template.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"fleetdeploy version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	addGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(namesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "YAML configuration file")
	flags.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String("state-dir", "", "Directory for the run history database (default ~/.fleetdeploy)")
}

// addTargetFlags registers the flags naming an application and environment
func addTargetFlags(flags *pflag.FlagSet) {
	flags.String("app", "", "Application name")
	flags.String("env", "", "Target environment")
	flags.String("region", "", "Cloud region (default "+config.DefaultRegion+")")
	flags.String("dev-env", "", "Name of the development environment (default "+config.DefaultDevEnvironment+")")
}

// loadConfig layers defaults, the optional config file and explicitly set
// flags, in that order, then initializes logging from the result
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.Load(path); err != nil {
			return nil, err
		}
	}

	overrides := map[string]*string{
		"app":            &cfg.App,
		"env":            &cfg.Environment,
		"version":        &cfg.Version,
		"instance-class": &cfg.InstanceClass,
		"region":         &cfg.Region,
		"dev-env":        &cfg.DevEnvironment,
		"base-sg":        &cfg.BaseSecurityGroup,
		"user-data":      &cfg.UserDataFile,
		"state-dir":      &cfg.StateDir,
		"metrics-addr":   &cfg.MetricsAddr,
		"log-level":      &cfg.Log.Level,
	}
	for name, dst := range overrides {
		flag := cmd.Flags().Lookup(name)
		if flag != nil && flag.Changed {
			*dst = flag.Value.String()
		}
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON, _ = cmd.Flags().GetBool("log-json")
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})

	return cfg, nil
}
