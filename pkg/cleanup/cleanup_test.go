package cleanup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/cloud"
	"github.com/cuemby/fleetdeploy/pkg/cloud/cloudtest"
	"github.com/cuemby/fleetdeploy/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func superseded(n int) []types.ImageRecord {
	var out []types.ImageRecord
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		out = append(out, types.ImageRecord{
			ID:          "ami-" + id,
			Name:        "app@1.0.0-" + id,
			SnapshotIDs: []string{"snap-" + id + "1", "snap-" + id + "2"},
		})
	}
	return out
}

func TestDeleteSupersededImages(t *testing.T) {
	provider := cloudtest.New()
	images := superseded(3)
	for _, img := range images {
		provider.AddImage(img)
	}

	result, err := DeleteSupersededImages(context.Background(), provider, images, zerolog.Nop())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ami-a", "ami-b", "ami-c"}, result.Images)
	assert.Len(t, result.Snapshots, 6)
	assert.Empty(t, provider.Images())

	// every deregistration precedes every snapshot deletion
	calls := provider.MutatingCalls()
	require.Len(t, calls, 9)
	for i, c := range calls {
		if i < 3 {
			assert.Equal(t, cloudtest.OpDeregisterImage, c.Op)
		} else {
			assert.Equal(t, cloudtest.OpDeleteSnapshot, c.Op)
		}
	}
}

func TestDeleteSupersededImagesNothingToDo(t *testing.T) {
	provider := cloudtest.New()

	result, err := DeleteSupersededImages(context.Background(), provider, nil, zerolog.Nop())

	require.NoError(t, err)
	assert.Empty(t, result.Images)
	assert.Empty(t, provider.Calls())
}

func TestDeregisterFailurePreventsSnapshotDeletion(t *testing.T) {
	provider := cloudtest.New()
	images := superseded(4)
	for _, img := range images {
		provider.AddImage(img)
	}
	provider.Fail(cloudtest.OpDeregisterImage, "ami-b", errors.New("image in use"))

	_, err := DeleteSupersededImages(context.Background(), provider, images, zerolog.Nop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ami-b")
	assert.Empty(t, provider.CallsTo(cloudtest.OpDeleteSnapshot))
}

func TestSnapshotFailureStopsPhase(t *testing.T) {
	provider := cloudtest.New()
	images := superseded(1)
	provider.AddImage(images[0])
	provider.Fail(cloudtest.OpDeleteSnapshot, "", errors.New("snapshot in use"))

	result, err := DeleteSupersededImages(context.Background(), provider, images, zerolog.Nop())

	require.Error(t, err)
	assert.Equal(t, []string{"ami-a"}, result.Images)
	assert.Empty(t, result.Snapshots)
}

func TestDeleteLaunchTemplate(t *testing.T) {
	provider := cloudtest.New().AddLaunchTemplate("app-development@1.1.0-1")

	require.NoError(t, DeleteLaunchTemplate(context.Background(), provider, "app-development@1.1.0-1", zerolog.Nop()))
	assert.False(t, provider.HasLaunchTemplate("app-development@1.1.0-1"))

	err := DeleteLaunchTemplate(context.Background(), provider, "missing", zerolog.Nop())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

// slowImages tracks how many deletions run at the same time
type slowImages struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	order    []string
}

var _ cloud.Images = (*slowImages)(nil)

func (s *slowImages) DescribeImages(context.Context, cloud.NameFilter) ([]types.ImageRecord, error) {
	return nil, nil
}

func (s *slowImages) DeregisterImage(ctx context.Context, id string) error {
	return s.work("image:" + id)
}

func (s *slowImages) DeleteSnapshot(ctx context.Context, id string) error {
	return s.work("snapshot:" + id)
}

func (s *slowImages) work(what string) error {
	n := s.inFlight.Add(1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	s.inFlight.Add(-1)

	s.mu.Lock()
	s.order = append(s.order, what)
	s.mu.Unlock()
	return nil
}

func TestConcurrencyIsBounded(t *testing.T) {
	images := &slowImages{}

	_, err := DeleteSupersededImages(context.Background(), images, superseded(6), zerolog.Nop())
	require.NoError(t, err)

	assert.LessOrEqual(t, images.peak.Load(), int32(Concurrency))
	assert.Len(t, images.order, 18)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := cloudtest.New()

	_, err := DeleteSupersededImages(ctx, provider, superseded(2), zerolog.Nop())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, provider.MutatingCalls())
}
