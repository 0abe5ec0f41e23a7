package preflight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/cloud"
	"github.com/cuemby/fleetdeploy/pkg/inspect"
	"github.com/cuemby/fleetdeploy/pkg/poll"
	"github.com/cuemby/fleetdeploy/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// ImageWaitTimeout bounds how long preflight waits for the image to build
	ImageWaitTimeout = 5 * time.Minute

	// ImageWaitBase is the exponential backoff unit for the image wait
	ImageWaitBase = time.Second
)

// Checker runs the read-only precondition queries before a deploy
type Checker struct {
	provider cloud.Provider
	clock    poll.Clock
	logger   zerolog.Logger
}

// NewChecker creates a new preflight checker
func NewChecker(provider cloud.Provider, clock poll.Clock, logger zerolog.Logger) *Checker {
	if clock == nil {
		clock = poll.RealClock{}
	}
	return &Checker{
		provider: provider,
		clock:    clock,
		logger:   logger,
	}
}

// Run executes every preflight branch concurrently and returns the combined
// result, or the first branch error. A failing branch cancels the others and
// Run returns only after all of them have stopped.
func (c *Checker) Run(ctx context.Context, cfg *types.DeployConfig) (*types.PreflightResult, error) {
	names := cfg.Names
	result := &types.PreflightResult{}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lb, err := inspect.LoadBalancer(ctx, c.provider, names.LoadBalancer)
		if err != nil {
			return err
		}
		c.logger.Debug().Str("dns", lb.DNSName).Int("instances", lb.InstanceCount).Msg("load balancer found")
		result.LoadBalancer = lb
		return nil
	})

	g.Go(func() error {
		ids, err := inspect.SecurityGroups(ctx, c.provider, names.SecurityGroup, cfg.BaseSecurityGroup)
		if err != nil {
			return err
		}
		c.logger.Debug().Strs("ids", ids).Msg("security groups found")
		result.SecurityGroupIDs = ids
		return nil
	})

	g.Go(func() error {
		key, err := inspect.KeyPair(ctx, c.provider, names.KeyPair)
		if err != nil {
			return err
		}
		result.KeyPair = key
		return nil
	})

	g.Go(func() error {
		profile, err := inspect.InstanceProfile(ctx, c.provider, names.InstanceProfile)
		if err != nil {
			return err
		}
		result.InstanceProfile = profile
		return nil
	})

	g.Go(func() error {
		set, err := c.WaitForImage(ctx, names.Image, cfg.ImageMatch())
		if err != nil {
			return err
		}
		result.Image = set.Latest
		result.Superseded = set.Superseded
		return nil
	})

	g.Go(func() error {
		fleet, err := inspect.Fleet(ctx, c.provider, names.Fleet)
		if err != nil {
			return err
		}
		if fleet.LaunchTemplate == names.LaunchTemplate {
			return fmt.Errorf("%w: fleet %s already runs %s", types.ErrAlreadyDeployed, names.Fleet, names.LaunchTemplate)
		}
		result.Fleet = fleet
		result.PriorLaunchTemplate = fleet.LaunchTemplate

		exists, err := inspect.LaunchTemplateExists(ctx, c.provider, names.LaunchTemplate)
		if err != nil {
			return err
		}
		result.TemplateExists = exists
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("image", result.Image.ID).
		Int("superseded_images", len(result.Superseded)).
		Str("prior_template", result.PriorLaunchTemplate).
		Bool("template_exists", result.TemplateExists).
		Msg("preflight passed")

	return result, nil
}

// WaitForImage polls the image registry until the newest matching image
// leaves the pending state. An image that settles in any state other than
// available is ErrNotAvailable; one still pending at the deadline is both
// ErrNotAvailable and ErrTimeout.
func (c *Checker) WaitForImage(ctx context.Context, name string, mode types.MatchMode) (types.ImageSet, error) {
	set, err := poll.Until(ctx, poll.Spec{
		Name:    "image-available",
		Policy:  poll.Exponential{Base: ImageWaitBase},
		Timeout: ImageWaitTimeout,
		Clock:   c.clock,
		Logger:  c.logger,
	}, func(ctx context.Context) (types.ImageSet, error) {
		return inspect.FindImages(ctx, c.provider, name, mode)
	}, func(set types.ImageSet) bool {
		return set.Latest.State != types.ImagePending
	})
	if err != nil {
		if errors.Is(err, types.ErrTimeout) && set.Latest.ID != "" {
			return types.ImageSet{}, fmt.Errorf("%w: image %s (%s) is %s: %w",
				types.ErrNotAvailable, name, set.Latest.ID, set.Latest.State, err)
		}
		return types.ImageSet{}, err
	}

	if set.Latest.State != types.ImageAvailable {
		return types.ImageSet{}, fmt.Errorf("%w: image %s (%s) is %s",
			types.ErrNotAvailable, name, set.Latest.ID, set.Latest.State)
	}

	c.logger.Info().Str("image", set.Latest.ID).Str("name", set.Latest.Name).Msg("image available")
	return set, nil
}
