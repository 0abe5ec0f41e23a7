package types

import (
	"time"
)

// DeployConfig holds everything a single deploy run needs. It is built once
// and never modified afterwards.
type DeployConfig struct {
	App               string
	Environment       string
	Version           string
	InstanceClass     string
	Region            string
	DevEnvironment    string
	BaseSecurityGroup string
	UserData          []byte
	Names             Names
}

// IsDevelopment reports whether the run targets the development environment
func (c *DeployConfig) IsDevelopment() bool {
	return c.Environment == c.DevEnvironment
}

// ImageMatch returns how images should be looked up for this run
func (c *DeployConfig) ImageMatch() MatchMode {
	if c.IsDevelopment() {
		return MatchPrefix
	}
	return MatchExact
}

// Names are the resource identifiers derived from {app, environment, version}
type Names struct {
	Fleet           string
	LaunchTemplate  string
	Image           string
	KeyPair         string
	LoadBalancer    string
	SecurityGroup   string
	InstanceProfile string
}

// MatchMode selects how an image name filter is applied
type MatchMode string

const (
	MatchExact  MatchMode = "exact"
	MatchPrefix MatchMode = "prefix"
)

// LifecycleState is the fleet manager's view of a member
type LifecycleState string

const (
	LifecyclePending     LifecycleState = "Pending"
	LifecycleInService   LifecycleState = "InService"
	LifecycleTerminating LifecycleState = "Terminating"
	LifecycleTerminated  LifecycleState = "Terminated"
	LifecycleStandby     LifecycleState = "Standby"
)

// HealthStatus is the fleet manager's health verdict for a member
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "Healthy"
	HealthUnhealthy HealthStatus = "Unhealthy"
)

// Member is a single instance in the fleet
type Member struct {
	InstanceID     string
	Lifecycle      LifecycleState
	Health         HealthStatus
	LaunchTemplate string
}

// Ready reports whether the member is in service, healthy and running template
func (m Member) Ready(template string) bool {
	return m.Lifecycle == LifecycleInService &&
		m.Health == HealthHealthy &&
		m.LaunchTemplate == template
}

// FleetSnapshot is the state of the autoscaling group at one point in time
type FleetSnapshot struct {
	Name               string
	Desired            int
	Min                int
	Max                int
	LaunchTemplate     string
	Members            []Member
	SuspendedProcesses []string
}

// ImageState is the lifecycle state of an image
type ImageState string

const (
	ImagePending   ImageState = "pending"
	ImageAvailable ImageState = "available"
	ImageFailed    ImageState = "failed"
)

// ImageRecord describes one machine image
type ImageRecord struct {
	ID          string
	Name        string
	State       ImageState
	CreatedAt   time.Time
	SnapshotIDs []string
}

// ImageSet is the result of an image lookup
type ImageSet struct {
	Latest     ImageRecord
	Superseded []ImageRecord
}

// InstanceState is a load balancer's admission state for one instance
type InstanceState string

const (
	InstanceInService     InstanceState = "InService"
	InstanceOutOfService  InstanceState = "OutOfService"
	InstanceUnknown       InstanceState = "Unknown"
	InstanceNotRegistered InstanceState = "NotRegistered"
)

// LoadBalancerStatus describes a load balancer and its registered instances
type LoadBalancerStatus struct {
	Name          string
	DNSName       string
	InstanceCount int
	Instances     map[string]InstanceState
}

// LaunchTemplateRecord describes a registered launch template
type LaunchTemplateRecord struct {
	ID            string
	Name          string
	LatestVersion int64
}

// LaunchTemplateSpec is the input for registering a new launch template
type LaunchTemplateSpec struct {
	Name             string
	ImageID          string
	InstanceClass    string
	SecurityGroupIDs []string
	KeyPair          string
	InstanceProfile  string
	UserData         []byte
}

// SecurityGroup is a named security group
type SecurityGroup struct {
	ID   string
	Name string
}

// PreflightResult is the precondition snapshot produced by preflight. Each
// field is written by exactly one preflight branch.
type PreflightResult struct {
	Image               ImageRecord
	Superseded          []ImageRecord
	LoadBalancer        LoadBalancerStatus
	Fleet               FleetSnapshot
	PriorLaunchTemplate string
	TemplateExists      bool
	SecurityGroupIDs    []string
	KeyPair             string
	InstanceProfile     string
}
