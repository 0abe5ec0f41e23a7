package storage

import (
	"github.com/cuemby/fleetdeploy/pkg/types"
)

// Store records deploy runs. It is an audit trail only; nothing read back
// from it influences a deploy.
type Store interface {
	SaveRun(run *types.Run) error
	GetRun(id string) (*types.Run, error)
	// ListRuns returns runs for fleet, newest first. An empty fleet lists all runs.
	ListRuns(fleet string) ([]*types.Run, error)
	Close() error
}
