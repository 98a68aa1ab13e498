package container

import (
	"context"
	"fmt"
	"time"

	dockercontainertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	dockerclient "github.com/moby/moby/client"
	"github.com/moby/moby/errdefs"
	"go.uber.org/zap"
)

// Lifecycle owns the create/start/stop/remove sequence for one named
// container. Domain-level code holds a Lifecycle and never talks to the
// Docker API for these operations directly.
type Lifecycle struct {
	log           *zap.Logger
	client        *dockerclient.Client
	containerName string
	id            string
}

// NewLifecycle creates a Lifecycle for the container with the given name.
func NewLifecycle(log *zap.Logger, cli *dockerclient.Client, containerName string) *Lifecycle {
	return &Lifecycle{
		log:           log,
		client:        cli,
		containerName: containerName,
	}
}

// CreateConfig carries everything needed to create a container.
type CreateConfig struct {
	Image        Image
	NetworkID    string
	Hostname     string
	CleanupLabel string
	// PortBindings maps in-container ports to fixed host bindings. Ports
	// with an empty binding list are exposed with a random host port.
	PortBindings nat.PortMap
	Binds        []string
	Cmd          []string
	Entrypoint   []string
	Env          []string
	User         string
}

// CreateContainer creates the container without starting it. The image must
// already be present locally.
func (c *Lifecycle) CreateContainer(ctx context.Context, cfg CreateConfig) error {
	exposed := make(nat.PortSet, len(cfg.PortBindings))
	for port := range cfg.PortBindings {
		exposed[port] = struct{}{}
	}

	created, err := c.client.ContainerCreate(
		ctx,
		&dockercontainertypes.Config{
			Image:        cfg.Image.Ref(),
			Hostname:     cfg.Hostname,
			User:         cfg.User,
			Cmd:          cfg.Cmd,
			Entrypoint:   cfg.Entrypoint,
			Env:          cfg.Env,
			ExposedPorts: exposed,
			Labels:       map[string]string{CleanupLabelKey: cfg.CleanupLabel},
		},
		&dockercontainertypes.HostConfig{
			Binds:        cfg.Binds,
			PortBindings: cfg.PortBindings,
			AutoRemove:   false,
			DNS:          []string{},
		},
		&network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				cfg.NetworkID: {},
			},
		},
		nil,
		c.containerName,
	)
	if err != nil {
		return fmt.Errorf("creating container %s: %w", c.containerName, err)
	}
	c.id = created.ID
	return nil
}

// StartContainer starts the created container.
func (c *Lifecycle) StartContainer(ctx context.Context) error {
	if err := c.client.ContainerStart(ctx, c.id, dockercontainertypes.StartOptions{}); err != nil {
		return fmt.Errorf("starting container %s: %w", c.containerName, err)
	}
	c.log.Info("container started",
		zap.String("container", c.containerName),
		zap.String("id", c.id),
	)
	return nil
}

// StopContainer stops the container, tolerating already-stopped and
// already-removed states.
func (c *Lifecycle) StopContainer(ctx context.Context) error {
	if c.id == "" {
		return nil
	}
	timeout := 30
	err := c.client.ContainerStop(ctx, c.id, dockercontainertypes.StopOptions{Timeout: &timeout})
	if err != nil && !errdefs.IsNotModified(err) && !errdefs.IsNotFound(err) {
		return fmt.Errorf("stopping container %s: %w", c.containerName, err)
	}
	return nil
}

// RemoveContainer force-removes the container and waits for it to be gone.
func (c *Lifecycle) RemoveContainer(ctx context.Context) error {
	if c.id == "" {
		return nil
	}
	err := c.client.ContainerRemove(ctx, c.id, dockercontainertypes.RemoveOptions{
		Force: true,
	})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("removing container %s: %w", c.containerName, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	waitCh, errCh := c.client.ContainerWait(waitCtx, c.id, dockercontainertypes.WaitConditionRemoved)
	select {
	case <-waitCtx.Done():
		return nil // container was likely gone before the wait began
	case err := <-errCh:
		if err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("waiting for container %s removal: %w", c.containerName, err)
		}
		return nil
	case <-waitCh:
		return nil
	}
}

// Running reports whether the container is currently running.
func (c *Lifecycle) Running(ctx context.Context) (bool, error) {
	if c.id == "" {
		return false, nil
	}
	inspect, err := c.client.ContainerInspect(ctx, c.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspecting container %s: %w", c.containerName, err)
	}
	return inspect.State != nil && inspect.State.Running, nil
}

// ContainerID returns the ID set during CreateContainer or Discover.
func (c *Lifecycle) ContainerID() string {
	return c.id
}

// Name returns the container name this lifecycle manages.
func (c *Lifecycle) Name() string {
	return c.containerName
}

// Discover resolves the container ID by name, for attaching to a container
// created by an earlier process. Returns false if no such container exists.
func (c *Lifecycle) Discover(ctx context.Context) (bool, error) {
	inspect, err := c.client.ContainerInspect(ctx, c.containerName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspecting container %s: %w", c.containerName, err)
	}
	c.id = inspect.ID
	return true, nil
}

// GetHostPorts returns the host-mapped addresses for the given container
// port IDs, e.g. "4001/tcp", in the order requested.
func (c *Lifecycle) GetHostPorts(ctx context.Context, portIDs ...string) ([]string, error) {
	inspect, err := c.client.ContainerInspect(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("inspecting container %s: %w", c.containerName, err)
	}
	if inspect.NetworkSettings == nil {
		return nil, fmt.Errorf("container %s has no network settings", c.containerName)
	}

	ports := make([]string, len(portIDs))
	for i, portID := range portIDs {
		bindings, ok := inspect.NetworkSettings.Ports[nat.Port(portID)]
		if !ok || len(bindings) == 0 {
			return nil, fmt.Errorf("port %s not bound on container %s", portID, c.containerName)
		}
		ports[i] = bindings[0].HostIP + ":" + bindings[0].HostPort
	}
	return ports, nil
}
