package container

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/filters"
	dockerimagetypes "github.com/docker/docker/api/types/image"
	dockerclient "github.com/moby/moby/client"
)

const (
	// Retry configuration for image pulls
	maxPullAttempts  = 3
	initialPullDelay = 1 * time.Second
	maxPullDelay     = 10 * time.Second
)

// Image identifies a Docker image plus the uid:gid its containers run as.
type Image struct {
	Repository string
	Tag        string
	// UIDGID is the uid:gid to run and chown volumes as. If blank, the
	// image's default user is used.
	UIDGID string
}

// NewImage constructs an Image reference.
func NewImage(repository, tag, uidGID string) Image {
	return Image{
		Repository: repository,
		Tag:        tag,
		UIDGID:     uidGID,
	}
}

// Ref returns the repository:tag reference usable with the Docker API.
func (i Image) Ref() string {
	tag := i.Tag
	if tag == "" {
		tag = "latest"
	}
	return i.Repository + ":" + tag
}

// EnsurePulled pulls the image if it is not already present locally. Pulls
// are retried with exponential backoff since registries fail transiently.
func EnsurePulled(ctx context.Context, cli *dockerclient.Client, image Image) error {
	images, err := cli.ImageList(ctx, dockerimagetypes.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", image.Ref())),
	})
	if err != nil {
		return fmt.Errorf("listing images to check %s presence: %w", image.Ref(), err)
	}
	if len(images) > 0 {
		return nil
	}

	err = retryWithBackoff(ctx, func() error {
		rc, err := cli.ImagePull(ctx, image.Ref(), dockerimagetypes.PullOptions{})
		if err != nil {
			return fmt.Errorf("pulling image %s: %w", image.Ref(), err)
		}
		_, _ = io.Copy(io.Discard, rc)
		_ = rc.Close()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to pull %s after retries: %w", image.Ref(), err)
	}
	return nil
}

// retryWithBackoff executes the given function with exponential backoff retry logic
func retryWithBackoff(ctx context.Context, operation func() error) error {
	var lastErr error
	delay := initialPullDelay

	for attempt := 0; attempt < maxPullAttempts; attempt++ {
		if err := operation(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxPullAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxPullDelay {
			delay = maxPullDelay
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", maxPullAttempts, lastErr)
}
