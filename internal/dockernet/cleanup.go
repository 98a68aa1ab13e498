package dockernet

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	dockerclient "github.com/moby/moby/client"
	"github.com/moby/moby/errdefs"
	"go.uber.org/zap"

	"github.com/sandboxtools/nodebox/internal/container"
)

// Cleanup stops and removes every container tagged with the sandbox's
// cleanup label, then prunes its volumes and networks. Errors on individual
// resources are logged and cleanup continues; the sandbox should come down
// as far as it can.
func Cleanup(ctx context.Context, log *zap.Logger, cli *dockerclient.Client, sandboxName string, keepVolumes bool) error {
	cs, err := cli.ContainerList(ctx, containertypes.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", container.CleanupLabelKey+"="+sandboxName),
		),
	})
	if err != nil {
		return fmt.Errorf("listing sandbox containers: %w", err)
	}

	for _, c := range cs {
		timeout := 10
		timeoutDur := time.Duration(timeout) * time.Second
		deadline := time.Now().Add(timeoutDur)
		if err := cli.ContainerStop(ctx, c.ID, containertypes.StopOptions{Timeout: &timeout}); isLoggableStopError(err) {
			log.Warn("failed to stop container", zap.String("id", c.ID), zap.Error(err))
		}

		waitCtx, cancel := context.WithDeadline(ctx, deadline.Add(500*time.Millisecond))
		waitCh, errCh := cli.ContainerWait(waitCtx, c.ID, containertypes.WaitConditionNotRunning)
		select {
		case <-waitCtx.Done():
			log.Warn("timed out waiting for container to stop", zap.String("id", c.ID))
		case err := <-errCh:
			log.Warn("failed to wait for container", zap.String("id", c.ID), zap.Error(err))
		case res := <-waitCh:
			if res.Error != nil {
				log.Warn("error while waiting for container", zap.String("id", c.ID), zap.String("error", res.Error.Message))
			}
		}
		cancel()

		if err := cli.ContainerRemove(ctx, c.ID, containertypes.RemoveOptions{
			// Volumes are handled separately below so they can be kept.
			Force: true,
		}); err != nil {
			log.Warn("failed to remove container", zap.String("id", c.ID), zap.Error(err))
		}
	}

	if !keepVolumes {
		pruneVolumesWithRetry(ctx, log, cli, sandboxName)
	}
	pruneNetworksWithRetry(ctx, log, cli, sandboxName)
	return nil
}

func pruneVolumesWithRetry(ctx context.Context, log *zap.Logger, cli *dockerclient.Client, sandboxName string) {
	var msg string
	err := retry.Do(
		func() error {
			res, err := cli.VolumesPrune(ctx, filters.NewArgs(filters.Arg("label", container.CleanupLabelKey+"="+sandboxName)))
			if err != nil {
				if errdefs.IsConflict(err) {
					// Prune is already in progress; try again.
					return err
				}

				// Give up on any other error.
				return retry.Unrecoverable(err)
			}

			if len(res.VolumesDeleted) > 0 {
				msg = fmt.Sprintf("pruned %d volumes, reclaiming approximately %.1f MB", len(res.VolumesDeleted), float64(res.SpaceReclaimed)/(1024*1024))
			}

			return nil
		},
		retry.Context(ctx),
		retry.DelayType(retry.FixedDelay),
	)
	if err != nil {
		log.Warn("failed to prune volumes", zap.Error(err))
		return
	}

	if msg != "" {
		log.Info(msg)
	}
}

func pruneNetworksWithRetry(ctx context.Context, log *zap.Logger, cli *dockerclient.Client, sandboxName string) {
	var deleted []string
	err := retry.Do(
		func() error {
			res, err := cli.NetworksPrune(ctx, filters.NewArgs(filters.Arg("label", container.CleanupLabelKey+"="+sandboxName)))
			if err != nil {
				if errdefs.IsConflict(err) {
					// Prune is already in progress; try again.
					return err
				}

				// Give up on any other error.
				return retry.Unrecoverable(err)
			}

			deleted = res.NetworksDeleted
			return nil
		},
		retry.Context(ctx),
		retry.DelayType(retry.FixedDelay),
	)
	if err != nil {
		log.Warn("failed to prune networks", zap.Error(err))
		return
	}

	if len(deleted) > 0 {
		log.Info("pruned networks", zap.Strings("networks", deleted))
	}
}

func isLoggableStopError(err error) bool {
	if err == nil {
		return false
	}
	return !(errdefs.IsNotModified(err) || errdefs.IsNotFound(err))
}
