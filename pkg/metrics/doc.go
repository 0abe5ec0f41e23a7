/*
Package metrics provides Prometheus metrics for fleetdeploy.

All collectors are package-level variables registered on the default
registry at init. Components update them directly; the CLI exposes them
through Handler when --metrics-addr is set, which lets a scraper watch a
long deploy while it runs.

# Metrics

Runs:
  - fleetdeploy_runs_total{result}: completed runs, result is "success" or "failed"
  - fleetdeploy_step_duration_seconds{step}: time spent in each deploy step

Polling:
  - fleetdeploy_poll_attempts_total{wait}: probe invocations per wait
  - fleetdeploy_poll_timeouts_total{wait}: waits that ran out of budget

Cleanup:
  - fleetdeploy_cleanup_deleted_total{kind}: deleted images, snapshots and templates

Fleet:
  - fleetdeploy_fleet_capacity{fleet,bound}: desired and max last applied

# Timer

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StepDuration, "preflight")

# Exposition

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
