// Package cloudtest provides an in-memory cloud.Provider for tests. It
// simulates one fleet behind one load balancer: raising desired capacity
// launches members from the fleet's current launch template, members warm up
// over successive describes, and the load balancer admits ready members.
// Every mutating call is recorded in order.
package cloudtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cuemby/fleetdeploy/pkg/cloud"
	"github.com/cuemby/fleetdeploy/pkg/types"
)

// Operation names used in Calls and Fail
const (
	OpDescribeImages         = "DescribeImages"
	OpDeregisterImage        = "DeregisterImage"
	OpDeleteSnapshot         = "DeleteSnapshot"
	OpDescribeLaunchTemplate = "DescribeLaunchTemplate"
	OpCreateLaunchTemplate   = "CreateLaunchTemplate"
	OpDeleteLaunchTemplate   = "DeleteLaunchTemplate"
	OpDescribeFleet          = "DescribeFleet"
	OpSetCapacity            = "SetCapacity"
	OpSetLaunchTemplate      = "SetLaunchTemplate"
	OpSuspendProcesses       = "SuspendProcesses"
	OpResumeProcesses        = "ResumeProcesses"
	OpTerminateMember        = "TerminateMember"
	OpDescribeLoadBalancer   = "DescribeLoadBalancer"
	OpDescribeSecurityGroups = "DescribeSecurityGroups"
	OpDescribeKeyPair        = "DescribeKeyPair"
	OpListInstanceProfiles   = "ListInstanceProfilesForRole"
)

var mutating = map[string]bool{
	OpDeregisterImage:      true,
	OpDeleteSnapshot:       true,
	OpCreateLaunchTemplate: true,
	OpDeleteLaunchTemplate: true,
	OpSetCapacity:          true,
	OpSetLaunchTemplate:    true,
	OpSuspendProcesses:     true,
	OpResumeProcesses:      true,
	OpTerminateMember:      true,
}

// Call is one recorded invocation
type Call struct {
	Op  string
	Arg string
}

func (c Call) String() string {
	return c.Op + "(" + c.Arg + ")"
}

// Provider is an in-memory cloud.Provider
type Provider struct {
	mu sync.Mutex

	images         []types.ImageRecord
	templates      map[string]types.LaunchTemplateRecord
	fleet          *types.FleetSnapshot
	lb             *types.LoadBalancerStatus
	securityGroups []types.SecurityGroup
	keyPairs       map[string]bool
	profiles       map[string][]string

	// MemberWarmup is how many fleet describes a launched member stays
	// Pending before it is InService and Healthy
	MemberWarmup int
	// AdmissionDelay is how many load balancer describes a ready member
	// stays OutOfService before it is admitted
	AdmissionDelay int

	failures map[string]failure
	calls    []Call
	nextID   int
	age      map[string]int
	lbSeen   map[string]int
}

type failure struct {
	arg string
	err error
}

var _ cloud.Provider = (*Provider)(nil)

// New returns an empty provider
func New() *Provider {
	return &Provider{
		templates: make(map[string]types.LaunchTemplateRecord),
		keyPairs:  make(map[string]bool),
		profiles:  make(map[string][]string),
		failures:  make(map[string]failure),
		age:       make(map[string]int),
		lbSeen:    make(map[string]int),
	}
}

// AddImage registers an image
func (p *Provider) AddImage(img types.ImageRecord) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.images = append(p.images, img)
	return p
}

// AddLaunchTemplate registers a launch template
func (p *Provider) AddLaunchTemplate(name string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.templates[name] = types.LaunchTemplateRecord{ID: p.id("lt"), Name: name, LatestVersion: 1}
	return p
}

// SetFleet installs the fleet with members ready members running template
func (p *Provider) SetFleet(name string, desired, minSize, maxSize int, template string, members int) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fleet = &types.FleetSnapshot{
		Name:           name,
		Desired:        desired,
		Min:            minSize,
		Max:            maxSize,
		LaunchTemplate: template,
	}
	for i := 0; i < members; i++ {
		p.fleet.Members = append(p.fleet.Members, types.Member{
			InstanceID:     p.id("i"),
			Lifecycle:      types.LifecycleInService,
			Health:         types.HealthHealthy,
			LaunchTemplate: template,
		})
	}
	return p
}

// SetLoadBalancer installs the load balancer and registers current members
func (p *Provider) SetLoadBalancer(name, dns string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lb = &types.LoadBalancerStatus{Name: name, DNSName: dns, Instances: make(map[string]types.InstanceState)}
	if p.fleet != nil {
		for _, m := range p.fleet.Members {
			p.lb.Instances[m.InstanceID] = types.InstanceInService
		}
	}
	p.lb.InstanceCount = len(p.lb.Instances)
	return p
}

// AddSecurityGroup registers a security group
func (p *Provider) AddSecurityGroup(name string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.securityGroups = append(p.securityGroups, types.SecurityGroup{ID: p.id("sg"), Name: name})
	return p
}

// AddKeyPair registers a key pair
func (p *Provider) AddKeyPair(name string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keyPairs[name] = true
	return p
}

// AddInstanceProfile attaches an instance profile named after role
func (p *Provider) AddInstanceProfile(role string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[role] = append(p.profiles[role], role)
	return p
}

// Fail makes every call to op whose argument contains arg return err. An
// empty arg matches every call.
func (p *Provider) Fail(op, arg string, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = failure{arg: arg, err: err}
	return p
}

// Calls returns every recorded call in order
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// MutatingCalls returns recorded calls that change remote state
func (p *Provider) MutatingCalls() []Call {
	var out []Call
	for _, c := range p.Calls() {
		if mutating[c.Op] {
			out = append(out, c)
		}
	}
	return out
}

// CallsTo returns recorded calls to op
func (p *Provider) CallsTo(op string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Images returns the registered images
func (p *Provider) Images() []types.ImageRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.ImageRecord, len(p.images))
	copy(out, p.images)
	return out
}

// HasLaunchTemplate reports whether name is registered
func (p *Provider) HasLaunchTemplate(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.templates[name]
	return ok
}

// FleetState returns the fleet after converging members to desired capacity
func (p *Provider) FleetState() types.FleetSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.converge()
	return p.snapshot()
}

// record logs the call and returns the injected failure for it, if any
func (p *Provider) record(op, arg string) error {
	p.calls = append(p.calls, Call{Op: op, Arg: arg})
	if f, ok := p.failures[op]; ok && strings.Contains(arg, f.arg) {
		return f.err
	}
	return nil
}

func (p *Provider) id(prefix string) string {
	p.nextID++
	return fmt.Sprintf("%s-%04d", prefix, p.nextID)
}

func (p *Provider) DescribeImages(ctx context.Context, filter cloud.NameFilter) ([]types.ImageRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDescribeImages, filter.Name); err != nil {
		return nil, err
	}

	var out []types.ImageRecord
	for _, img := range p.images {
		match := img.Name == filter.Name
		if filter.Mode == types.MatchPrefix {
			match = strings.HasPrefix(img.Name, filter.Name)
		}
		if match {
			out = append(out, img)
		}
	}
	return out, nil
}

func (p *Provider) DeregisterImage(ctx context.Context, imageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDeregisterImage, imageID); err != nil {
		return err
	}
	for i, img := range p.images {
		if img.ID == imageID {
			p.images = append(p.images[:i], p.images[i+1:]...)
			return nil
		}
	}
	return types.NotFoundf("image %s", imageID)
}

func (p *Provider) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record(OpDeleteSnapshot, snapshotID)
}

func (p *Provider) DescribeLaunchTemplate(ctx context.Context, name string) (*types.LaunchTemplateRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDescribeLaunchTemplate, name); err != nil {
		return nil, err
	}
	record, ok := p.templates[name]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (p *Provider) CreateLaunchTemplate(ctx context.Context, spec types.LaunchTemplateSpec) (*types.LaunchTemplateRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpCreateLaunchTemplate, spec.Name); err != nil {
		return nil, err
	}
	if _, ok := p.templates[spec.Name]; ok {
		return nil, fmt.Errorf("launch template %s already exists", spec.Name)
	}
	record := types.LaunchTemplateRecord{ID: p.id("lt"), Name: spec.Name, LatestVersion: 1}
	p.templates[spec.Name] = record
	return &record, nil
}

func (p *Provider) DeleteLaunchTemplate(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDeleteLaunchTemplate, name); err != nil {
		return err
	}
	if _, ok := p.templates[name]; !ok {
		return types.NotFoundf("launch template %s", name)
	}
	delete(p.templates, name)
	return nil
}

func (p *Provider) DescribeFleet(ctx context.Context, name string) (types.FleetSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDescribeFleet, name); err != nil {
		return types.FleetSnapshot{}, err
	}
	if p.fleet == nil || p.fleet.Name != name {
		return types.FleetSnapshot{}, types.NotFoundf("fleet %s", name)
	}
	p.converge()
	p.warmUp()
	return p.snapshot(), nil
}

func (p *Provider) SetCapacity(ctx context.Context, name string, desired, maxSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpSetCapacity, fmt.Sprintf("%s desired=%d max=%d", name, desired, maxSize)); err != nil {
		return err
	}
	if p.fleet == nil || p.fleet.Name != name {
		return types.NotFoundf("fleet %s", name)
	}
	if desired > maxSize || desired < p.fleet.Min {
		return fmt.Errorf("desired %d outside bounds [%d, %d]", desired, p.fleet.Min, maxSize)
	}
	p.fleet.Desired = desired
	p.fleet.Max = maxSize
	return nil
}

func (p *Provider) SetLaunchTemplate(ctx context.Context, name, template string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpSetLaunchTemplate, name+" "+template); err != nil {
		return err
	}
	if p.fleet == nil || p.fleet.Name != name {
		return types.NotFoundf("fleet %s", name)
	}
	p.fleet.LaunchTemplate = template
	return nil
}

func (p *Provider) SuspendProcesses(ctx context.Context, name string, processes []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpSuspendProcesses, name); err != nil {
		return err
	}
	if p.fleet == nil || p.fleet.Name != name {
		return types.NotFoundf("fleet %s", name)
	}
	p.fleet.SuspendedProcesses = append([]string(nil), processes...)
	return nil
}

func (p *Provider) ResumeProcesses(ctx context.Context, name string, processes []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpResumeProcesses, name); err != nil {
		return err
	}
	if p.fleet == nil || p.fleet.Name != name {
		return types.NotFoundf("fleet %s", name)
	}
	p.fleet.SuspendedProcesses = nil
	return nil
}

func (p *Provider) TerminateMember(ctx context.Context, instanceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpTerminateMember, instanceID); err != nil {
		return err
	}
	if p.fleet == nil {
		return types.NotFoundf("instance %s", instanceID)
	}
	for i, m := range p.fleet.Members {
		if m.InstanceID == instanceID {
			p.fleet.Members = append(p.fleet.Members[:i], p.fleet.Members[i+1:]...)
			if p.lb != nil {
				delete(p.lb.Instances, instanceID)
				p.lb.InstanceCount = len(p.lb.Instances)
			}
			return nil
		}
	}
	return types.NotFoundf("instance %s", instanceID)
}

func (p *Provider) DescribeLoadBalancer(ctx context.Context, name string) (types.LoadBalancerStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDescribeLoadBalancer, name); err != nil {
		return types.LoadBalancerStatus{}, err
	}
	if p.lb == nil || p.lb.Name != name {
		return types.LoadBalancerStatus{}, types.NotFoundf("load balancer %s", name)
	}

	if p.fleet != nil {
		for _, m := range p.fleet.Members {
			if _, ok := p.lb.Instances[m.InstanceID]; ok && p.lb.Instances[m.InstanceID] == types.InstanceInService {
				continue
			}
			if m.Lifecycle != types.LifecycleInService {
				continue
			}
			p.lbSeen[m.InstanceID]++
			if p.lbSeen[m.InstanceID] > p.AdmissionDelay {
				p.lb.Instances[m.InstanceID] = types.InstanceInService
			} else {
				p.lb.Instances[m.InstanceID] = types.InstanceOutOfService
			}
		}
	}
	p.lb.InstanceCount = len(p.lb.Instances)

	out := *p.lb
	out.Instances = make(map[string]types.InstanceState, len(p.lb.Instances))
	for k, v := range p.lb.Instances {
		out.Instances[k] = v
	}
	return out, nil
}

func (p *Provider) DescribeSecurityGroups(ctx context.Context, names []string) ([]types.SecurityGroup, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDescribeSecurityGroups, strings.Join(names, ",")); err != nil {
		return nil, err
	}
	var out []types.SecurityGroup
	for _, g := range p.securityGroups {
		for _, n := range names {
			if g.Name == n {
				out = append(out, g)
			}
		}
	}
	return out, nil
}

func (p *Provider) DescribeKeyPair(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDescribeKeyPair, name); err != nil {
		return "", err
	}
	if !p.keyPairs[name] {
		return "", types.NotFoundf("key pair %s", name)
	}
	return name, nil
}

func (p *Provider) ListInstanceProfilesForRole(ctx context.Context, role string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpListInstanceProfiles, role); err != nil {
		return nil, err
	}
	profiles, ok := p.profiles[role]
	if !ok {
		return nil, types.NotFoundf("role %s", role)
	}
	return append([]string(nil), profiles...), nil
}

// converge launches members from the current template until the fleet
// reaches desired capacity, or removes the oldest-template members first
// when it is above it
func (p *Provider) converge() {
	if p.fleet == nil {
		return
	}
	for len(p.fleet.Members) < p.fleet.Desired {
		m := types.Member{
			InstanceID:     p.id("i"),
			Lifecycle:      types.LifecyclePending,
			Health:         types.HealthHealthy,
			LaunchTemplate: p.fleet.LaunchTemplate,
		}
		p.fleet.Members = append(p.fleet.Members, m)
		p.age[m.InstanceID] = 0
	}
	if extra := len(p.fleet.Members) - p.fleet.Desired; extra > 0 {
		current := p.fleet.LaunchTemplate
		sort.SliceStable(p.fleet.Members, func(i, j int) bool {
			return p.fleet.Members[i].LaunchTemplate != current && p.fleet.Members[j].LaunchTemplate == current
		})
		for _, m := range p.fleet.Members[:extra] {
			if p.lb != nil {
				delete(p.lb.Instances, m.InstanceID)
			}
		}
		p.fleet.Members = p.fleet.Members[extra:]
	}
}

// warmUp advances pending members one describe closer to service
func (p *Provider) warmUp() {
	for i := range p.fleet.Members {
		m := &p.fleet.Members[i]
		if m.Lifecycle != types.LifecyclePending {
			continue
		}
		p.age[m.InstanceID]++
		if p.age[m.InstanceID] > p.MemberWarmup {
			m.Lifecycle = types.LifecycleInService
		}
	}
}

func (p *Provider) snapshot() types.FleetSnapshot {
	out := *p.fleet
	out.Members = append([]types.Member(nil), p.fleet.Members...)
	out.SuspendedProcesses = append([]string(nil), p.fleet.SuspendedProcesses...)
	return out
}
