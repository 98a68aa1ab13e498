package container

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	dockercontainertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	volumetypes "github.com/docker/docker/api/types/volume"
	dockerclient "github.com/moby/moby/client"
	"go.uber.org/zap"
)

const busyboxRef = "busybox:stable"

// Node is one sandbox container plus its data volume. Domain-specific node
// types embed it and add their own commands on top of Exec.
type Node struct {
	*Lifecycle

	DockerClient *dockerclient.Client
	NetworkID    string
	Image        Image
	// SandboxName labels every resource this node creates.
	SandboxName string

	VolumeName string
	homeDir    string
	logger     *zap.Logger
}

// NewNode creates a Node handle; the container itself is created later via
// the embedded Lifecycle.
func NewNode(cli *dockerclient.Client, networkID, sandboxName string, image Image, homeDir, containerName string, logger *zap.Logger) *Node {
	return &Node{
		Lifecycle:    NewLifecycle(logger, cli, containerName),
		DockerClient: cli,
		NetworkID:    networkID,
		Image:        image,
		SandboxName:  sandboxName,
		homeDir:      homeDir,
		logger:       logger,
	}
}

// HomeDir is the in-container directory the node's volume is mounted at.
func (n *Node) HomeDir() string {
	return n.homeDir
}

// Bind returns the volume bind mount for the node's home directory.
func (n *Node) Bind() []string {
	return []string{n.VolumeName + ":" + n.homeDir}
}

// CreateAndSetupVolume creates the node's data volume and, when the image
// runs as a specific uid:gid, chowns the volume to it using a short-lived
// busybox container.
func (n *Node) CreateAndSetupVolume(ctx context.Context, name string) error {
	v, err := n.DockerClient.VolumeCreate(ctx, volumetypes.CreateOptions{
		Name:   SanitizeResourceName(name),
		Labels: map[string]string{CleanupLabelKey: n.SandboxName},
	})
	if err != nil {
		return fmt.Errorf("creating volume %s: %w", name, err)
	}
	n.VolumeName = v.Name

	if n.Image.UIDGID == "" {
		return nil
	}
	if err := EnsurePulled(ctx, n.DockerClient, Image{Repository: "busybox", Tag: "stable"}); err != nil {
		return err
	}
	return n.chownVolume(ctx)
}

// chownVolume runs a one-off busybox container that chowns the mounted
// volume to the node image's uid:gid.
func (n *Node) chownVolume(ctx context.Context) error {
	const mountPath = "/mnt/volume"
	created, err := n.DockerClient.ContainerCreate(
		ctx,
		&dockercontainertypes.Config{
			Image:  busyboxRef,
			Cmd:    []string{"chown", "-R", n.Image.UIDGID, mountPath},
			Labels: map[string]string{CleanupLabelKey: n.SandboxName},
		},
		&dockercontainertypes.HostConfig{
			Binds:      []string{n.VolumeName + ":" + mountPath},
			AutoRemove: true,
		},
		&network.NetworkingConfig{},
		nil,
		"",
	)
	if err != nil {
		return fmt.Errorf("creating volume-owner container: %w", err)
	}
	if err := n.DockerClient.ContainerStart(ctx, created.ID, dockercontainertypes.StartOptions{}); err != nil {
		return fmt.Errorf("starting volume-owner container: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	waitCh, errCh := n.DockerClient.ContainerWait(waitCtx, created.ID, dockercontainertypes.WaitConditionNotRunning)
	select {
	case <-waitCtx.Done():
		return fmt.Errorf("timed out setting volume ownership: %w", waitCtx.Err())
	case err := <-errCh:
		return fmt.Errorf("waiting for volume-owner container: %w", err)
	case res := <-waitCh:
		if res.StatusCode != 0 {
			return fmt.Errorf("volume-owner container exited with code %d", res.StatusCode)
		}
	}
	return nil
}

// Exec runs cmd inside the node's running container.
func (n *Node) Exec(ctx context.Context, cmd []string, env []string) ([]byte, []byte, error) {
	res, err := Exec(ctx, n.logger, n.DockerClient, n.ContainerID(), cmd, ExecOptions{Env: env})
	return res.Stdout, res.Stderr, err
}

// WriteFile writes content to relPath under the node's home directory in the
// running container.
func (n *Node) WriteFile(ctx context.Context, relPath string, content []byte) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name: relPath,
		Mode: 0o644,
		Size: int64(len(content)),
	}); err != nil {
		return fmt.Errorf("writing tar header for %s: %w", relPath, err)
	}
	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("writing tar content for %s: %w", relPath, err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar for %s: %w", relPath, err)
	}

	err := n.DockerClient.CopyToContainer(ctx, n.ContainerID(), n.homeDir, &buf, dockercontainertypes.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("copying %s into container: %w", relPath, err)
	}
	return nil
}

// ReadFile reads the file at relPath under the node's home directory from
// the running container.
func (n *Node) ReadFile(ctx context.Context, relPath string) ([]byte, error) {
	rc, _, err := n.DockerClient.CopyFromContainer(ctx, n.ContainerID(), path.Join(n.homeDir, relPath))
	if err != nil {
		return nil, fmt.Errorf("copying %s out of container: %w", relPath, err)
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	if _, err := tr.Next(); err != nil {
		return nil, fmt.Errorf("reading tar for %s: %w", relPath, err)
	}
	content, err := io.ReadAll(tr)
	if err != nil {
		return nil, fmt.Errorf("reading %s content: %w", relPath, err)
	}
	return content, nil
}
