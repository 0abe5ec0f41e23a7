package preflight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/cloud/cloudtest"
	"github.com/cuemby/fleetdeploy/pkg/naming"
	"github.com/cuemby/fleetdeploy/pkg/poll"
	"github.com/cuemby/fleetdeploy/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig(env string) *types.DeployConfig {
	cfg := &types.DeployConfig{
		App:               "app",
		Environment:       env,
		Version:           "1.2.0",
		InstanceClass:     "t3.small",
		Region:            "us-east-1",
		DevEnvironment:    "development",
		BaseSecurityGroup: "BASE",
	}
	cfg.Names = naming.Derive(naming.Input{
		App:            cfg.App,
		Environment:    cfg.Environment,
		Version:        cfg.Version,
		DevEnvironment: cfg.DevEnvironment,
	}, epoch)
	return cfg
}

func readyProvider(cfg *types.DeployConfig, state types.ImageState) *cloudtest.Provider {
	return cloudtest.New().
		AddImage(types.ImageRecord{ID: "ami-1", Name: cfg.Names.Image, State: state, CreatedAt: epoch}).
		SetFleet(cfg.Names.Fleet, 2, 1, 2, "app-prod@1.1.0", 2).
		SetLoadBalancer(cfg.Names.LoadBalancer, "app.elb.example.com").
		AddSecurityGroup(cfg.Names.SecurityGroup).
		AddSecurityGroup(cfg.BaseSecurityGroup).
		AddKeyPair(cfg.Names.KeyPair).
		AddInstanceProfile(cfg.Names.InstanceProfile)
}

// blockingClock never lets a sleep finish before its context is cancelled
type blockingClock struct{}

func (blockingClock) Now() time.Time { return epoch }

func (blockingClock) Sleep(ctx context.Context, d time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRun(t *testing.T) {
	cfg := testConfig("prod")
	provider := readyProvider(cfg, types.ImageAvailable)

	checker := NewChecker(provider, poll.NewManualClock(epoch), zerolog.Nop())
	result, err := checker.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "ami-1", result.Image.ID)
	assert.Empty(t, result.Superseded)
	assert.Equal(t, "app.elb.example.com", result.LoadBalancer.DNSName)
	assert.Equal(t, "app-prod@1.1.0", result.PriorLaunchTemplate)
	assert.Equal(t, 2, result.Fleet.Desired)
	assert.Len(t, result.SecurityGroupIDs, 2)
	assert.Equal(t, "app", result.KeyPair)
	assert.Equal(t, "app_prod", result.InstanceProfile)
	assert.False(t, result.TemplateExists)
	assert.Empty(t, provider.MutatingCalls())
}

func TestRunDetectsExistingTemplate(t *testing.T) {
	cfg := testConfig("prod")
	provider := readyProvider(cfg, types.ImageAvailable).AddLaunchTemplate(cfg.Names.LaunchTemplate)

	result, err := NewChecker(provider, poll.NewManualClock(epoch), zerolog.Nop()).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, result.TemplateExists)
}

func TestRunAlreadyDeployed(t *testing.T) {
	cfg := testConfig("prod")
	provider := readyProvider(cfg, types.ImageAvailable).
		SetFleet(cfg.Names.Fleet, 2, 1, 2, cfg.Names.LaunchTemplate, 2)

	result, err := NewChecker(provider, poll.NewManualClock(epoch), zerolog.Nop()).Run(context.Background(), cfg)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, types.ErrAlreadyDeployed)
	assert.Empty(t, provider.MutatingCalls())
	assert.Empty(t, provider.CallsTo(cloudtest.OpDescribeLaunchTemplate))
}

func TestRunMissingResources(t *testing.T) {
	cfg := testConfig("prod")

	tests := []struct {
		name   string
		mutate func(*cloudtest.Provider)
	}{
		{
			name:   "fleet",
			mutate: func(p *cloudtest.Provider) { p.SetFleet("someone-else", 1, 1, 1, "x", 1) },
		},
		{
			name:   "load balancer",
			mutate: func(p *cloudtest.Provider) { p.SetLoadBalancer("other", "x") },
		},
		{
			name: "key pair",
			mutate: func(p *cloudtest.Provider) {
				p.Fail(cloudtest.OpDescribeKeyPair, "", types.NotFoundf("key pair app"))
			},
		},
		{
			name: "instance profile",
			mutate: func(p *cloudtest.Provider) {
				p.Fail(cloudtest.OpListInstanceProfiles, "", types.NotFoundf("role app_prod"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := readyProvider(cfg, types.ImageAvailable)
			tt.mutate(provider)

			result, err := NewChecker(provider, poll.NewManualClock(epoch), zerolog.Nop()).Run(context.Background(), cfg)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, types.ErrNotFound)
			assert.Empty(t, provider.MutatingCalls())
		})
	}
}

func TestRunMissingApplicationSecurityGroup(t *testing.T) {
	cfg := testConfig("prod")
	provider := cloudtest.New().
		AddImage(types.ImageRecord{ID: "ami-1", Name: cfg.Names.Image, State: types.ImageAvailable, CreatedAt: epoch}).
		SetFleet(cfg.Names.Fleet, 2, 1, 2, "app-prod@1.1.0", 2).
		SetLoadBalancer(cfg.Names.LoadBalancer, "x").
		AddSecurityGroup(cfg.BaseSecurityGroup).
		AddKeyPair(cfg.Names.KeyPair).
		AddInstanceProfile(cfg.Names.InstanceProfile)

	_, err := NewChecker(provider, poll.NewManualClock(epoch), zerolog.Nop()).Run(context.Background(), cfg)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRunImagePendingTimesOut(t *testing.T) {
	cfg := testConfig("prod")
	provider := readyProvider(cfg, types.ImagePending)
	clock := poll.NewManualClock(epoch)

	_, err := NewChecker(provider, clock, zerolog.Nop()).Run(context.Background(), cfg)

	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.ErrorIs(t, err, types.ErrNotAvailable)

	var timeoutErr *types.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, ImageWaitTimeout, timeoutErr.Elapsed)
	assert.Equal(t, types.ImagePending, timeoutErr.Last.(types.ImageSet).Latest.State)
}

func TestRunImageFailed(t *testing.T) {
	cfg := testConfig("prod")
	provider := readyProvider(cfg, types.ImageFailed)

	_, err := NewChecker(provider, poll.NewManualClock(epoch), zerolog.Nop()).Run(context.Background(), cfg)

	assert.ErrorIs(t, err, types.ErrNotAvailable)
	assert.NotErrorIs(t, err, types.ErrTimeout)
}

func TestRunDevelopmentUsesPrefixMatch(t *testing.T) {
	cfg := testConfig("development")
	provider := readyProvider(cfg, types.ImageAvailable).
		AddImage(types.ImageRecord{ID: "ami-2", Name: cfg.Names.Image + "-2", State: types.ImageAvailable, CreatedAt: epoch.Add(time.Hour)})

	result, err := NewChecker(provider, poll.NewManualClock(epoch), zerolog.Nop()).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "ami-2", result.Image.ID)
	require.Len(t, result.Superseded, 1)
	assert.Equal(t, "ami-1", result.Superseded[0].ID)
}

func TestRunFailureCancelsImageWait(t *testing.T) {
	cfg := testConfig("prod")
	provider := readyProvider(cfg, types.ImagePending).
		Fail(cloudtest.OpDescribeKeyPair, "", types.NotFoundf("key pair app"))

	done := make(chan error, 1)
	go func() {
		_, err := NewChecker(provider, blockingClock{}, zerolog.Nop()).Run(context.Background(), cfg)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NotErrorIs(t, err, types.ErrTimeout)
	case <-time.After(5 * time.Second):
		t.Fatal("preflight did not cancel the image wait")
	}
}

func TestRunTransportError(t *testing.T) {
	cfg := testConfig("prod")
	boom := &types.TransportError{Service: "elb", Op: "DescribeLoadBalancers", Err: errors.New("access denied")}
	provider := readyProvider(cfg, types.ImageAvailable).Fail(cloudtest.OpDescribeLoadBalancer, "", boom)

	_, err := NewChecker(provider, poll.NewManualClock(epoch), zerolog.Nop()).Run(context.Background(), cfg)

	var transportErr *types.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "elb", transportErr.Service)
}
