// Package cloud defines the provider-agnostic boundary between the deploy
// orchestrator and the remote subsystems it drives.
//
// Implementations report a missing resource from a describe call as an error
// wrapping types.ErrNotFound and every other failure as a
// *types.TransportError. They never retry.
package cloud

import (
	"context"

	"github.com/cuemby/fleetdeploy/pkg/types"
)

// ScalingProcesses are the fleet manager's automatic actions paused for the
// duration of a deploy
var ScalingProcesses = []string{
	"AZRebalance",
	"AlarmNotification",
	"ScheduledActions",
	"ReplaceUnhealthy",
}

// NameFilter selects images by name
type NameFilter struct {
	Name string
	Mode types.MatchMode
}

// Images is the image registry
type Images interface {
	DescribeImages(ctx context.Context, filter NameFilter) ([]types.ImageRecord, error)
	DeregisterImage(ctx context.Context, imageID string) error
	DeleteSnapshot(ctx context.Context, snapshotID string) error
}

// LaunchTemplates is the launch template registry
type LaunchTemplates interface {
	// DescribeLaunchTemplate returns nil and no error when name is not registered
	DescribeLaunchTemplate(ctx context.Context, name string) (*types.LaunchTemplateRecord, error)
	CreateLaunchTemplate(ctx context.Context, spec types.LaunchTemplateSpec) (*types.LaunchTemplateRecord, error)
	DeleteLaunchTemplate(ctx context.Context, name string) error
}

// Fleets is the autoscaling fleet manager
type Fleets interface {
	DescribeFleet(ctx context.Context, name string) (types.FleetSnapshot, error)
	SetCapacity(ctx context.Context, name string, desired, maxSize int) error
	SetLaunchTemplate(ctx context.Context, name, template string) error
	SuspendProcesses(ctx context.Context, name string, processes []string) error
	ResumeProcesses(ctx context.Context, name string, processes []string) error
	// TerminateMember removes an instance without decrementing desired capacity
	TerminateMember(ctx context.Context, instanceID string) error
}

// LoadBalancers is the load balancer service
type LoadBalancers interface {
	DescribeLoadBalancer(ctx context.Context, name string) (types.LoadBalancerStatus, error)
}

// Network covers security groups and key pairs
type Network interface {
	// DescribeSecurityGroups returns the groups among names that exist
	DescribeSecurityGroups(ctx context.Context, names []string) ([]types.SecurityGroup, error)
	DescribeKeyPair(ctx context.Context, name string) (string, error)
}

// Identity is the identity and access store
type Identity interface {
	// ListInstanceProfilesForRole returns the instance profile names attached to role
	ListInstanceProfilesForRole(ctx context.Context, role string) ([]string, error)
}

// Provider is every subsystem a deploy touches
type Provider interface {
	Images
	LaunchTemplates
	Fleets
	LoadBalancers
	Network
	Identity
}
