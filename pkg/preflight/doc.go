/*
Package preflight verifies every precondition of a deploy before anything
is changed.

The checker fans out one branch per independent query and joins them:

	┌──────────────── PREFLIGHT ─────────────────┐
	│                                              │
	│  load balancer ──────────┐                   │
	│  security groups ────────┤                   │
	│  key pair ───────────────┤                   │
	│  instance profile ───────┼──► PreflightResult│
	│  image wait (≤5m) ───────┤                   │
	│  fleet ─► already         │                   │
	│          deployed? ─►     │                   │
	│          template exists ┘                   │
	└──────────────────────────────────────────────┘

Branches run in an errgroup. The first failure cancels the shared context,
so an in-flight image wait stops at its next sleep, and Run returns that
failure once every branch has returned. Partial results are never
surfaced.

A fleet whose current launch template already equals the target name fails
with types.ErrAlreadyDeployed; re-running a version is rejected rather than
repeated. Preflight never issues a mutating call.
*/
package preflight
