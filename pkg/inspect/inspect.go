// Package inspect holds the stateless read-only queries the preflight and
// deploy steps are built from. Each function performs one request against
// one subsystem and normalizes the answer into pkg/types values.
package inspect

import (
	"context"
	"fmt"
	"sort"

	"github.com/cuemby/fleetdeploy/pkg/cloud"
	"github.com/cuemby/fleetdeploy/pkg/types"
)

// FindImages looks up images by name and splits them into the newest record
// and every older match. No match at all is ErrNotFound.
func FindImages(ctx context.Context, images cloud.Images, name string, mode types.MatchMode) (types.ImageSet, error) {
	records, err := images.DescribeImages(ctx, cloud.NameFilter{Name: name, Mode: mode})
	if err != nil {
		return types.ImageSet{}, err
	}
	if len(records) == 0 {
		return types.ImageSet{}, types.NotFoundf("image %s", name)
	}

	sorted := make([]types.ImageRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	return types.ImageSet{
		Latest:     sorted[0],
		Superseded: sorted[1:],
	}, nil
}

// Fleet returns a fresh snapshot of the named fleet
func Fleet(ctx context.Context, fleets cloud.Fleets, name string) (types.FleetSnapshot, error) {
	snapshot, err := fleets.DescribeFleet(ctx, name)
	if err != nil {
		return types.FleetSnapshot{}, fmt.Errorf("fleet %s: %w", name, err)
	}
	return snapshot, nil
}

// LoadBalancer returns the named load balancer's status
func LoadBalancer(ctx context.Context, lbs cloud.LoadBalancers, name string) (types.LoadBalancerStatus, error) {
	status, err := lbs.DescribeLoadBalancer(ctx, name)
	if err != nil {
		return types.LoadBalancerStatus{}, fmt.Errorf("load balancer %s: %w", name, err)
	}
	return status, nil
}

// InstanceState returns the load balancer's view of one instance
func InstanceState(lb types.LoadBalancerStatus, instanceID string) types.InstanceState {
	state, ok := lb.Instances[instanceID]
	if !ok {
		return types.InstanceNotRegistered
	}
	return state
}

// SecurityGroups resolves the application group and the shared base group.
// The application group must exist; a missing base group is tolerated.
func SecurityGroups(ctx context.Context, network cloud.Network, appGroup, baseGroup string) ([]string, error) {
	names := []string{appGroup}
	if baseGroup != "" && baseGroup != appGroup {
		names = append(names, baseGroup)
	}

	groups, err := network.DescribeSecurityGroups(ctx, names)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]string, len(groups))
	for _, g := range groups {
		byName[g.Name] = g.ID
	}

	appID, ok := byName[appGroup]
	if !ok {
		return nil, types.NotFoundf("security group %s", appGroup)
	}

	ids := []string{appID}
	if baseID, ok := byName[baseGroup]; ok && baseGroup != appGroup {
		ids = append(ids, baseID)
	}
	return ids, nil
}

// KeyPair confirms the named key pair exists
func KeyPair(ctx context.Context, network cloud.Network, name string) (string, error) {
	found, err := network.DescribeKeyPair(ctx, name)
	if err != nil {
		return "", fmt.Errorf("key pair %s: %w", name, err)
	}
	return found, nil
}

// InstanceProfile confirms an instance profile is attached to role
func InstanceProfile(ctx context.Context, identity cloud.Identity, role string) (string, error) {
	profiles, err := identity.ListInstanceProfilesForRole(ctx, role)
	if err != nil {
		return "", fmt.Errorf("instance profile %s: %w", role, err)
	}
	for _, p := range profiles {
		if p == role {
			return p, nil
		}
	}
	if len(profiles) > 0 {
		return profiles[0], nil
	}
	return "", types.NotFoundf("instance profile for role %s", role)
}

// LaunchTemplateExists reports whether name is already registered
func LaunchTemplateExists(ctx context.Context, lts cloud.LaunchTemplates, name string) (bool, error) {
	record, err := lts.DescribeLaunchTemplate(ctx, name)
	if err != nil {
		return false, fmt.Errorf("launch template %s: %w", name, err)
	}
	return record != nil, nil
}

// ReadyMember returns the first member running template that is in service
// and healthy
func ReadyMember(fleet types.FleetSnapshot, template string) (types.Member, bool) {
	for _, m := range fleet.Members {
		if m.Ready(template) {
			return m, true
		}
	}
	return types.Member{}, false
}

// Superseded returns every member not running template
func Superseded(fleet types.FleetSnapshot, template string) []types.Member {
	var out []types.Member
	for _, m := range fleet.Members {
		if m.LaunchTemplate != template {
			out = append(out, m)
		}
	}
	return out
}
