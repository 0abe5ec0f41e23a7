package deploy

import (
	"context"
	"sort"

	"github.com/cuemby/fleetdeploy/pkg/inspect"
	"github.com/cuemby/fleetdeploy/pkg/types"
)

// DeploymentStatus represents the current state of a fleet and its load balancer
type DeploymentStatus struct {
	Fleet          string
	LaunchTemplate string
	Desired        int
	Min            int
	Max            int
	TotalMembers   int
	ReadyMembers   int
	Admitted       int
	DNSName        string
	Templates      map[string]int // Launch template -> member count
	Suspended      []string
}

// GetDeploymentStatus returns what the fleet and load balancer report right now
func (d *Deployer) GetDeploymentStatus(ctx context.Context, names types.Names) (*DeploymentStatus, error) {
	fleet, err := inspect.Fleet(ctx, d.provider, names.Fleet)
	if err != nil {
		return nil, err
	}

	lb, err := inspect.LoadBalancer(ctx, d.provider, names.LoadBalancer)
	if err != nil {
		return nil, err
	}

	status := &DeploymentStatus{
		Fleet:          fleet.Name,
		LaunchTemplate: fleet.LaunchTemplate,
		Desired:        fleet.Desired,
		Min:            fleet.Min,
		Max:            fleet.Max,
		TotalMembers:   len(fleet.Members),
		DNSName:        lb.DNSName,
		Templates:      make(map[string]int),
		Suspended:      append([]string(nil), fleet.SuspendedProcesses...),
	}
	sort.Strings(status.Suspended)

	for _, m := range fleet.Members {
		status.Templates[m.LaunchTemplate]++
		if m.Lifecycle == types.LifecycleInService && m.Health == types.HealthHealthy {
			status.ReadyMembers++
		}
		if inspect.InstanceState(lb, m.InstanceID) == types.InstanceInService {
			status.Admitted++
		}
	}

	return status, nil
}
