package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/cloud/aws"
	"github.com/cuemby/fleetdeploy/pkg/deploy"
	"github.com/cuemby/fleetdeploy/pkg/events"
	"github.com/cuemby/fleetdeploy/pkg/log"
	"github.com/cuemby/fleetdeploy/pkg/metrics"
	"github.com/cuemby/fleetdeploy/pkg/storage"
	"github.com/cuemby/fleetdeploy/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Roll a new image onto a fleet",
	Long: `Roll the image <app>@<version> onto the autoscaling group <app>-<env>.

Examples:
  # Deploy version 1.2.0 of billing to production
  fleetdeploy deploy --app billing --env prod --version 1.2.0 --instance-class m5.large

  # Deploy with settings from a file and expose metrics while it runs
  fleetdeploy deploy --config billing.yaml --version 1.2.0 --metrics-addr :9100`,
	RunE: runDeploy,
}

func init() {
	addDeployFlags(deployCmd.Flags())
}

func addDeployFlags(flags *pflag.FlagSet) {
	addTargetFlags(flags)
	flags.String("version", "", "Release version to deploy")
	flags.String("instance-class", "", "Instance type for the new launch template")
	flags.String("base-sg", "", "Shared security group attached when present (default BASE)")
	flags.String("user-data", "", "File with instance user data")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	deployCfg, err := cfg.Build(time.Now())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	provider, err := aws.New(ctx, deployCfg.Region)
	if err != nil {
		return err
	}

	store, err := storage.NewBoltStore(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer store.Close()

	broker := events.NewBroker()
	done := printProgress(broker.Subscribe())

	fmt.Printf("Deploying %s to %s\n", deployCfg.Names.Image, deployCfg.Names.Fleet)
	fmt.Printf("  Launch template: %s\n", deployCfg.Names.LaunchTemplate)
	fmt.Printf("  Load balancer: %s\n", deployCfg.Names.LoadBalancer)
	fmt.Println()

	deployer := deploy.NewDeployer(provider, deploy.Options{
		Events: broker,
		Store:  store,
		Logger: log.WithComponent("deploy"),
	})
	run, runErr := deployer.Run(ctx, deployCfg)

	broker.Close()
	<-done

	runLog := log.WithRun(run.ID, run.Fleet)
	fmt.Println()
	if runErr != nil {
		runLog.Error().Err(runErr).Msg("deploy failed")
		if run.Expansion != nil {
			fmt.Fprintf(os.Stderr, "Fleet %s may need attention: capacity was changed to desired=%d max=%d\n",
				run.Fleet, run.Expansion.Desired, run.Expansion.Max)
		}
		return runErr
	}

	runLog.Info().Str("instance", run.NewInstance).Msg("deploy recorded")
	fmt.Printf("✓ %s now runs %s\n", run.Fleet, run.LaunchTemplate)
	fmt.Printf("  New instance: %s\n", run.NewInstance)
	fmt.Printf("  Retired: %d\n", len(run.Retired))
	if len(run.DeletedImages) > 0 {
		fmt.Printf("  Deleted images: %d, snapshots: %d\n", len(run.DeletedImages), len(run.DeletedSnapshots))
	}
	fmt.Printf("  Run ID: %s\n", run.ID)
	return nil
}

// printProgress prints step events until sub is closed
func printProgress(sub events.Subscriber) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			switch ev.Type {
			case events.EventStepStarted:
				fmt.Printf("→ %s\n", ev.Step)
			case events.EventStepCompleted:
				fmt.Printf("✓ %s\n", ev.Step)
			case events.EventStepSkipped:
				fmt.Printf("- %s (skipped: %s)\n", ev.Step, ev.Message)
			case events.EventStepFailed:
				fmt.Printf("✗ %s: %s\n", ev.Step, ev.Message)
			}
		}
	}()
	return done
}

func formatRunState(state types.RunState) string {
	switch state {
	case types.RunStateSucceeded:
		return "✓ " + string(state)
	case types.RunStateFailed:
		return "✗ " + string(state)
	default:
		return string(state)
	}
}
