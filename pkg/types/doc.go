/*
Package types defines the core data structures used throughout fleetdeploy.

This package contains the domain model shared by every other package: the
immutable deploy configuration, the normalized snapshots returned by the
resource inspectors, the preflight result consumed by the rolling deploy
state machine, and the error taxonomy every component reports through.

# Architecture

The types package is the foundation of the deploy data flow:

	┌────────────── DEPLOY DATA FLOW ──────────────────────┐
	│                                                        │
	│  DeployConfig (read-only, built once per run)         │
	│        │                                               │
	│        ▼                                               │
	│  Preflight ──► PreflightResult (write-once output)    │
	│        │           │                                   │
	│        │           ├─ ImageRecord (latest)             │
	│        │           ├─ []ImageRecord (superseded)       │
	│        │           ├─ FleetSnapshot (prior state)      │
	│        │           └─ LoadBalancerStatus               │
	│        ▼                                               │
	│  Rolling deploy ──► fresh FleetSnapshot per decision   │
	└────────────────────────────────────────────────────────┘

All snapshot types are values. Nothing in the orchestrator edits a snapshot
in place; every decision is re-derived from a fresh query or from a snapshot
explicitly handed to the step that needs it.

# Core Types

Configuration:
  - DeployConfig: application, environment, version, instance class, region
  - Names: every resource identifier derived from {app, environment, version}

Fleet:
  - FleetSnapshot: capacity bounds, active launch template, members
  - Member: instance id, lifecycle state, health, launch template
  - LifecycleState, HealthStatus: fleet-manager views of a member

Images:
  - ImageRecord: id, name, state, creation time, backing snapshots
  - ImageSet: the newest record plus every superseded one

Load balancer:
  - LoadBalancerStatus: DNS name and per-instance admission state
  - InstanceState: InService, OutOfService, Unknown, NotRegistered

Preflight:
  - PreflightResult: the consistent precondition snapshot

# Errors

Sentinels (use errors.Is):
  - ErrNotFound: an expected resource is missing
  - ErrAlreadyDeployed: the fleet already runs the target launch template
  - ErrTimeout: a poll exceeded its budget
  - ErrNotAvailable: an image exists but is not usable

Structured (use errors.As):
  - TransportError: a subsystem call failed (network, auth, throttling)
  - TimeoutError: carries the wait name, elapsed time and last observed status
  - StepError: names the deploy step that failed

# See Also

  - pkg/naming for the naming convention
  - pkg/preflight for how PreflightResult is produced
  - pkg/deploy for how it is consumed
*/
package types
