package deploy

import (
	"github.com/cuemby/fleetdeploy/pkg/types"
)

// PlanExpand computes the capacity for the swap: one more desired instance,
// and one more maximum only when the fleet is already at its maximum.
func PlanExpand(fleet types.FleetSnapshot) types.Expansion {
	e := types.Expansion{
		PriorDesired: fleet.Desired,
		PriorMax:     fleet.Max,
		Desired:      fleet.Desired + 1,
		Max:          fleet.Max,
	}
	if fleet.Desired == fleet.Max {
		e.Max = fleet.Max + 1
		e.Bumped = true
	}
	return e
}

// PlanShrink undoes an expansion: one less desired instance, and the
// maximum restored only if the expansion raised it.
func PlanShrink(e types.Expansion) (desired, maxSize int) {
	desired = e.Desired - 1
	maxSize = e.Max
	if e.Bumped {
		maxSize = e.Max - 1
	}
	return desired, maxSize
}
