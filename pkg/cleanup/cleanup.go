// Package cleanup reclaims launch templates, images and snapshots left
// behind by earlier deploys.
package cleanup

import (
	"context"
	"fmt"

	"github.com/cuemby/fleetdeploy/pkg/cloud"
	"github.com/cuemby/fleetdeploy/pkg/metrics"
	"github.com/cuemby/fleetdeploy/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Concurrency is the maximum number of deletions in flight at once
const Concurrency = 2

// Result lists what was deleted
type Result struct {
	Images    []string
	Snapshots []string
}

// DeleteSupersededImages deregisters every image and then deletes every
// backing snapshot. Snapshot deletion only starts once all images are
// deregistered, and the first failure in a phase stops the rest of it.
func DeleteSupersededImages(ctx context.Context, images cloud.Images, superseded []types.ImageRecord, logger zerolog.Logger) (Result, error) {
	var result Result
	if len(superseded) == 0 {
		return result, nil
	}

	imageIDs := make([]string, 0, len(superseded))
	var snapshotIDs []string
	for _, img := range superseded {
		imageIDs = append(imageIDs, img.ID)
		snapshotIDs = append(snapshotIDs, img.SnapshotIDs...)
	}

	if err := forEach(ctx, imageIDs, func(ctx context.Context, id string) error {
		if err := images.DeregisterImage(ctx, id); err != nil {
			return fmt.Errorf("deregister image %s: %w", id, err)
		}
		metrics.CleanupDeletedTotal.WithLabelValues("image").Inc()
		logger.Info().Str("image", id).Msg("image deregistered")
		return nil
	}); err != nil {
		return result, err
	}
	result.Images = imageIDs

	if err := forEach(ctx, snapshotIDs, func(ctx context.Context, id string) error {
		if err := images.DeleteSnapshot(ctx, id); err != nil {
			return fmt.Errorf("delete snapshot %s: %w", id, err)
		}
		metrics.CleanupDeletedTotal.WithLabelValues("snapshot").Inc()
		logger.Info().Str("snapshot", id).Msg("snapshot deleted")
		return nil
	}); err != nil {
		return result, err
	}
	result.Snapshots = snapshotIDs

	return result, nil
}

// DeleteLaunchTemplate removes a launch template by name
func DeleteLaunchTemplate(ctx context.Context, lts cloud.LaunchTemplates, name string, logger zerolog.Logger) error {
	if err := lts.DeleteLaunchTemplate(ctx, name); err != nil {
		return fmt.Errorf("delete launch template %s: %w", name, err)
	}
	metrics.CleanupDeletedTotal.WithLabelValues("launch_template").Inc()
	logger.Info().Str("launch_template", name).Msg("launch template deleted")
	return nil
}

// forEach runs fn over ids with at most Concurrency calls in flight. The
// first error cancels the context handed to the remaining calls and no new
// calls are started after it.
func forEach(parent context.Context, ids []string, fn func(context.Context, string) error) error {
	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(Concurrency)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return parent.Err()
}
