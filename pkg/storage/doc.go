/*
Package storage keeps a local history of deploy runs in BoltDB.

Every run is written when it starts and rewritten after each step, so an
interrupted deploy still leaves a record of how far it got. Operators read
the history with `fleetdeploy history`.

	┌──────────── <state-dir>/fleetdeploy.db ────────────┐
	│  bucket "runs"                                        │
	│    key:   run id (uuid)                               │
	│    value: JSON types.Run                              │
	│           {fleet, launch_template, state, steps[],    │
	│            expansion, retired[], deleted_images[]}    │
	└───────────────────────────────────────────────────────┘

The history is an audit trail only. The cloud provider remains the single
source of truth: the orchestrator never reads a stored run to decide what
to do next.

Opening the database takes an exclusive file lock; a second fleetdeploy
process using the same state directory fails after five seconds instead of
waiting indefinitely.
*/
package storage
