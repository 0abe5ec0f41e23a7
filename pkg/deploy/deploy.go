package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/cleanup"
	"github.com/cuemby/fleetdeploy/pkg/cloud"
	"github.com/cuemby/fleetdeploy/pkg/events"
	"github.com/cuemby/fleetdeploy/pkg/inspect"
	"github.com/cuemby/fleetdeploy/pkg/metrics"
	"github.com/cuemby/fleetdeploy/pkg/poll"
	"github.com/cuemby/fleetdeploy/pkg/preflight"
	"github.com/cuemby/fleetdeploy/pkg/storage"
	"github.com/cuemby/fleetdeploy/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Step names a state of the rolling deploy
type Step string

const (
	StepSuspendScaling       Step = "suspend-scaling"
	StepPreflight            Step = "preflight"
	StepEnsureLaunchTemplate Step = "ensure-launch-template"
	StepExpandCapacity       Step = "expand-capacity"
	StepAwaitNewMember       Step = "await-new-member"
	StepAwaitLoadBalancer    Step = "await-load-balancer"
	StepRetireOldMembers     Step = "retire-old-members"
	StepShrinkCapacity       Step = "shrink-capacity"
	StepCleanup              Step = "cleanup"
)

const (
	MemberWaitInterval = 20 * time.Second
	MemberWaitTimeout  = 10 * time.Minute

	AdmissionWaitInterval = 10 * time.Second
	AdmissionWaitTimeout  = 5 * time.Minute

	// resumeTimeout bounds the compensating resume issued after a failure
	resumeTimeout = 30 * time.Second
)

// Options configures a Deployer. Every field is optional.
type Options struct {
	Clock  poll.Clock
	Events events.Publisher
	Store  storage.Store
	Logger zerolog.Logger
}

// Deployer performs rolling image deploys onto a fleet
type Deployer struct {
	provider  cloud.Provider
	preflight *preflight.Checker
	clock     poll.Clock
	events    events.Publisher
	store     storage.Store
	logger    zerolog.Logger
}

// NewDeployer creates a new deployer
func NewDeployer(provider cloud.Provider, opts Options) *Deployer {
	clock := opts.Clock
	if clock == nil {
		clock = poll.RealClock{}
	}
	publisher := opts.Events
	if publisher == nil {
		publisher = events.Discard
	}
	return &Deployer{
		provider:  provider,
		preflight: preflight.NewChecker(provider, clock, opts.Logger.With().Str("component", "preflight").Logger()),
		clock:     clock,
		events:    publisher,
		store:     opts.Store,
		logger:    opts.Logger,
	}
}

// run is the state of one Deployer.Run call
type run struct {
	*Deployer
	cfg    *types.DeployConfig
	record *types.Run
	logger zerolog.Logger

	pre       *types.PreflightResult
	expansion types.Expansion

	suspended bool
	resumed   bool
}

// Run deploys cfg.Version onto the fleet. Steps run strictly in order and
// the first error stops the run; nothing already applied is rolled back.
// The returned record describes how far the run got, on success and on
// failure.
func (d *Deployer) Run(ctx context.Context, cfg *types.DeployConfig) (*types.Run, error) {
	r := &run{
		Deployer: d,
		cfg:      cfg,
		record: &types.Run{
			ID:             uuid.NewString(),
			App:            cfg.App,
			Environment:    cfg.Environment,
			Version:        cfg.Version,
			Fleet:          cfg.Names.Fleet,
			LaunchTemplate: cfg.Names.LaunchTemplate,
			State:          types.RunStateRunning,
			StartedAt:      d.clock.Now(),
		},
	}
	r.logger = d.logger.With().Str("run_id", r.record.ID).Str("fleet", cfg.Names.Fleet).Logger()

	r.logger.Info().
		Str("version", cfg.Version).
		Str("launch_template", cfg.Names.LaunchTemplate).
		Bool("development", cfg.IsDevelopment()).
		Msg("starting rolling deploy")
	r.publish(events.EventRunStarted, "", "deploying "+cfg.Names.LaunchTemplate)
	r.save()

	steps := []struct {
		name Step
		fn   func(context.Context) error
	}{
		{StepSuspendScaling, r.suspendScaling},
		{StepPreflight, r.runPreflight},
		{StepEnsureLaunchTemplate, r.ensureLaunchTemplate},
		{StepExpandCapacity, r.expandCapacity},
		{StepAwaitNewMember, r.awaitNewMember},
		{StepAwaitLoadBalancer, r.awaitLoadBalancer},
		{StepRetireOldMembers, r.retireOldMembers},
		{StepShrinkCapacity, r.shrinkCapacity},
	}

	for _, s := range steps {
		if err := r.step(ctx, s.name, s.fn); err != nil {
			return r.record, r.fail(ctx, err)
		}
	}

	if cfg.IsDevelopment() {
		if err := r.step(ctx, StepCleanup, r.cleanup); err != nil {
			return r.record, r.fail(ctx, err)
		}
	} else {
		r.skip(StepCleanup, "not the development environment")
	}

	r.record.State = types.RunStateSucceeded
	r.record.FinishedAt = d.clock.Now()
	r.save()
	metrics.RunsTotal.WithLabelValues("success").Inc()
	r.publish(events.EventRunCompleted, "", "fleet now runs "+cfg.Names.LaunchTemplate)
	r.logger.Info().Dur("elapsed", r.record.FinishedAt.Sub(r.record.StartedAt)).Msg("rolling deploy complete")

	return r.record, nil
}

// step runs fn as the named step, recording and publishing its outcome
func (r *run) step(ctx context.Context, name Step, fn func(context.Context) error) error {
	timer := metrics.NewTimer()
	started := r.clock.Now()

	r.logger.Info().Str("step", string(name)).Msg("step started")
	r.publish(events.EventStepStarted, name, "")

	err := fn(ctx)

	timer.ObserveDurationVec(metrics.StepDuration, string(name))
	rec := types.StepRecord{
		Step:      string(name),
		StartedAt: started,
		Duration:  r.clock.Now().Sub(started),
	}

	if err != nil {
		rec.Error = err.Error()
		r.record.Steps = append(r.record.Steps, rec)
		r.publish(events.EventStepFailed, name, err.Error())
		return &types.StepError{Step: string(name), Err: err}
	}

	r.record.Steps = append(r.record.Steps, rec)
	r.save()
	r.publish(events.EventStepCompleted, name, "")
	r.logger.Info().Str("step", string(name)).Dur("took", rec.Duration).Msg("step completed")
	return nil
}

func (r *run) skip(name Step, reason string) {
	r.record.Steps = append(r.record.Steps, types.StepRecord{
		Step:      string(name),
		StartedAt: r.clock.Now(),
		Skipped:   true,
	})
	r.publish(events.EventStepSkipped, name, reason)
	r.logger.Debug().Str("step", string(name)).Str("reason", reason).Msg("step skipped")
}

// fail finishes a failed run. If automatic scaling was suspended and never
// resumed, it is resumed here so a failed deploy does not leave the fleet
// without its scaling policies.
func (r *run) fail(ctx context.Context, err error) error {
	if r.suspended && !r.resumed {
		resumeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resumeTimeout)
		defer cancel()

		r.logger.Warn().Strs("processes", cloud.ScalingProcesses).Msg("resuming scaling processes after failure")
		if rerr := r.provider.ResumeProcesses(resumeCtx, r.cfg.Names.Fleet, cloud.ScalingProcesses); rerr != nil {
			err = errors.Join(err, fmt.Errorf("resume scaling processes: %w", rerr))
		} else {
			r.resumed = true
		}
	}

	r.record.State = types.RunStateFailed
	r.record.Error = err.Error()
	r.record.FinishedAt = r.clock.Now()
	r.save()
	metrics.RunsTotal.WithLabelValues("failed").Inc()
	r.publish(events.EventRunFailed, "", err.Error())
	r.logger.Error().Err(err).Msg("rolling deploy failed")

	return err
}

func (r *run) suspendScaling(ctx context.Context) error {
	if err := r.provider.SuspendProcesses(ctx, r.cfg.Names.Fleet, cloud.ScalingProcesses); err != nil {
		return err
	}
	r.suspended = true
	return nil
}

func (r *run) runPreflight(ctx context.Context) error {
	pre, err := r.preflight.Run(ctx, r.cfg)
	if err != nil {
		return err
	}
	r.pre = pre
	r.record.ImageID = pre.Image.ID
	r.record.PriorLaunchTemplate = pre.PriorLaunchTemplate
	return nil
}

func (r *run) ensureLaunchTemplate(ctx context.Context) error {
	name := r.cfg.Names.LaunchTemplate
	if r.pre.TemplateExists {
		r.logger.Info().Str("launch_template", name).Msg("launch template already registered")
		return nil
	}

	created, err := r.provider.CreateLaunchTemplate(ctx, types.LaunchTemplateSpec{
		Name:             name,
		ImageID:          r.pre.Image.ID,
		InstanceClass:    r.cfg.InstanceClass,
		SecurityGroupIDs: r.pre.SecurityGroupIDs,
		KeyPair:          r.pre.KeyPair,
		InstanceProfile:  r.pre.InstanceProfile,
		UserData:         r.cfg.UserData,
	})
	if err != nil {
		return err
	}
	r.logger.Info().Str("launch_template", name).Str("id", created.ID).Msg("launch template created")
	return nil
}

func (r *run) expandCapacity(ctx context.Context) error {
	fleet, err := inspect.Fleet(ctx, r.provider, r.cfg.Names.Fleet)
	if err != nil {
		return err
	}

	r.expansion = PlanExpand(fleet)
	r.record.Expansion = &r.expansion

	if err := r.setCapacity(ctx, r.expansion.Desired, r.expansion.Max); err != nil {
		return err
	}
	if err := r.provider.ResumeProcesses(ctx, r.cfg.Names.Fleet, cloud.ScalingProcesses); err != nil {
		return err
	}
	r.resumed = true

	if err := r.provider.SetLaunchTemplate(ctx, r.cfg.Names.Fleet, r.cfg.Names.LaunchTemplate); err != nil {
		return err
	}

	r.logger.Info().
		Int("desired", r.expansion.Desired).
		Int("max", r.expansion.Max).
		Bool("headroom_bump", r.expansion.Bumped).
		Msg("fleet expanded")
	return nil
}

// fleetProgress summarizes a fleet snapshot for the new-member wait
type fleetProgress struct {
	Members  int
	OnTarget int
	Ready    string
}

func (p fleetProgress) String() string {
	ready := p.Ready
	if ready == "" {
		ready = "none"
	}
	return fmt.Sprintf("%d members, %d on target, ready: %s", p.Members, p.OnTarget, ready)
}

func (r *run) awaitNewMember(ctx context.Context) error {
	target := r.cfg.Names.LaunchTemplate

	progress, err := poll.Until(ctx, poll.Spec{
		Name:    "new-member",
		Policy:  poll.Fixed(MemberWaitInterval),
		Timeout: MemberWaitTimeout,
		Clock:   r.clock,
		Logger:  r.logger,
	}, func(ctx context.Context) (fleetProgress, error) {
		fleet, err := inspect.Fleet(ctx, r.provider, r.cfg.Names.Fleet)
		if err != nil {
			return fleetProgress{}, err
		}
		p := fleetProgress{Members: len(fleet.Members)}
		for _, m := range fleet.Members {
			if m.LaunchTemplate == target {
				p.OnTarget++
			}
		}
		if m, ok := inspect.ReadyMember(fleet, target); ok {
			p.Ready = m.InstanceID
		}
		return p, nil
	}, func(p fleetProgress) bool {
		return p.Ready != ""
	})
	if err != nil {
		return err
	}

	r.record.NewInstance = progress.Ready
	r.logger.Info().Str("instance", progress.Ready).Msg("new member in service")
	return nil
}

func (r *run) awaitLoadBalancer(ctx context.Context) error {
	instance := r.record.NewInstance

	_, err := poll.Until(ctx, poll.Spec{
		Name:    "load-balancer-admission",
		Policy:  poll.Fixed(AdmissionWaitInterval),
		Timeout: AdmissionWaitTimeout,
		Clock:   r.clock,
		Logger:  r.logger,
	}, func(ctx context.Context) (types.InstanceState, error) {
		lb, err := inspect.LoadBalancer(ctx, r.provider, r.cfg.Names.LoadBalancer)
		if err != nil {
			return "", err
		}
		return inspect.InstanceState(lb, instance), nil
	}, func(state types.InstanceState) bool {
		return state == types.InstanceInService
	})
	if err != nil {
		return err
	}

	r.logger.Info().Str("instance", instance).Msg("load balancer admitted new member")
	return nil
}

func (r *run) retireOldMembers(ctx context.Context) error {
	fleet, err := inspect.Fleet(ctx, r.provider, r.cfg.Names.Fleet)
	if err != nil {
		return err
	}

	for _, m := range inspect.Superseded(fleet, r.cfg.Names.LaunchTemplate) {
		if err := r.provider.TerminateMember(ctx, m.InstanceID); err != nil {
			return fmt.Errorf("terminate %s: %w", m.InstanceID, err)
		}
		r.record.Retired = append(r.record.Retired, m.InstanceID)
		r.logger.Info().Str("instance", m.InstanceID).Str("launch_template", m.LaunchTemplate).Msg("old member terminated")
	}
	return nil
}

func (r *run) shrinkCapacity(ctx context.Context) error {
	desired, maxSize := PlanShrink(r.expansion)
	if err := r.setCapacity(ctx, desired, maxSize); err != nil {
		return err
	}
	r.logger.Info().Int("desired", desired).Int("max", maxSize).Msg("fleet capacity restored")
	return nil
}

func (r *run) cleanup(ctx context.Context) error {
	logger := r.logger.With().Str("component", "cleanup").Logger()

	prior := r.pre.PriorLaunchTemplate
	if prior != "" && prior != r.cfg.Names.LaunchTemplate {
		if err := cleanup.DeleteLaunchTemplate(ctx, r.provider, prior, logger); err != nil {
			return err
		}
	}

	result, err := cleanup.DeleteSupersededImages(ctx, r.provider, r.pre.Superseded, logger)
	r.record.DeletedImages = result.Images
	r.record.DeletedSnapshots = result.Snapshots
	return err
}

func (r *run) setCapacity(ctx context.Context, desired, maxSize int) error {
	if err := r.provider.SetCapacity(ctx, r.cfg.Names.Fleet, desired, maxSize); err != nil {
		return err
	}
	metrics.FleetCapacity.WithLabelValues(r.cfg.Names.Fleet, "desired").Set(float64(desired))
	metrics.FleetCapacity.WithLabelValues(r.cfg.Names.Fleet, "max").Set(float64(maxSize))
	return nil
}

func (r *run) publish(typ events.EventType, step Step, msg string) {
	r.events.Publish(&events.Event{
		Type:      typ,
		RunID:     r.record.ID,
		Step:      string(step),
		Timestamp: r.clock.Now(),
		Message:   msg,
		Metadata: map[string]string{
			"fleet":           r.cfg.Names.Fleet,
			"launch_template": r.cfg.Names.LaunchTemplate,
		},
	})
}

// save writes the run record. The history is an audit trail, so a failed
// write is logged and the deploy carries on.
func (r *run) save() {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRun(r.record); err != nil {
		r.logger.Warn().Err(err).Msg("failed to record run history")
	}
}
