package storage

import (
	"testing"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	run := &types.Run{
		ID:             "run-1",
		Fleet:          "app-prod",
		LaunchTemplate: "app-prod@1.2.0",
		State:          types.RunStateRunning,
		StartedAt:      started,
		Steps: []types.StepRecord{
			{Step: "suspend-scaling", StartedAt: started, Duration: time.Second},
		},
	}
	require.NoError(t, store.SaveRun(run))

	run.State = types.RunStateSucceeded
	run.Expansion = &types.Expansion{PriorDesired: 2, PriorMax: 2, Desired: 3, Max: 3, Bumped: true}
	require.NoError(t, store.SaveRun(run))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, types.RunStateSucceeded, got.State)
	assert.True(t, got.StartedAt.Equal(started))
	require.Len(t, got.Steps, 1)
	assert.Equal(t, time.Second, got.Steps[0].Duration)
	require.NotNil(t, got.Expansion)
	assert.True(t, got.Expansion.Bumped)
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListRuns(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(&types.Run{ID: "a", Fleet: "app-prod", StartedAt: base}))
	require.NoError(t, store.SaveRun(&types.Run{ID: "b", Fleet: "app-prod", StartedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, store.SaveRun(&types.Run{ID: "c", Fleet: "app-staging", StartedAt: base.Add(time.Hour)}))

	runs, err := store.ListRuns("app-prod")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "a", runs[1].ID)

	all, err := store.ListRuns("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestReopenKeepsRuns(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(&types.Run{ID: "persisted", Fleet: "app-prod"}))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetRun("persisted")
	require.NoError(t, err)
	assert.Equal(t, "app-prod", got.Fleet)
}
