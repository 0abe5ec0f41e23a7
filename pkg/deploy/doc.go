/*
Package deploy implements the rolling image deploy for a fleet behind a
load balancer.

A Deployer swaps a fleet onto a new launch template one instance at a time
by temporarily growing the fleet, waiting for the new member to serve, and
then retiring every member still on an older template.

# Steps

A run executes these steps strictly in order. The first failure stops the
run; nothing already applied is rolled back.

	suspend-scaling         suspend AZRebalance, AlarmNotification,
	                        ScheduledActions, ReplaceUnhealthy
	        │
	preflight               concurrent checks (image, load balancer,
	        │               security groups, key pair, profile, fleet)
	ensure-launch-template  create <app>-<env>@<version> unless present
	        │
	expand-capacity         desired+1, max+1 only if desired == max,
	        │               resume scaling, point fleet at new template
	await-new-member        poll every 20s for up to 10m
	        │
	await-load-balancer     poll every 10s for up to 5m
	        │
	retire-old-members      terminate members on any other template
	        │
	shrink-capacity         undo the expansion
	        │
	cleanup                 development only: delete prior template,
	                        superseded images and their snapshots

If a run fails after scaling was suspended but before it was resumed, the
Deployer issues a compensating resume so the fleet is not left without its
scaling policies.

# Usage

	deployer := deploy.NewDeployer(provider, deploy.Options{
		Events: broker,
		Store:  store,
		Logger: log.WithComponent("deploy"),
	})

	run, err := deployer.Run(ctx, cfg)
	if err != nil {
		var stepErr *types.StepError
		if errors.As(err, &stepErr) {
			fmt.Println("failed at", stepErr.Step)
		}
	}

Every run produces a types.Run record describing how far it got. When a
Store is configured the record is saved after each completed step.
*/
package deploy
