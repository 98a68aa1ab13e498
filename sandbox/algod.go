package sandbox

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	dockerclient "github.com/moby/moby/client"
	"go.uber.org/zap"

	"github.com/sandboxtools/nodebox/internal/container"
)

const (
	algodHome    = "/algod"
	algodDataDir = "/algod/data"

	// In-container service ports.
	algodPort = "4001/tcp"
	kmdPort   = "4002/tcp"
)

// AlgodToken is the API token the sandbox node is configured with. It is a
// fixed, publicly known value; the sandbox is for local development only.
var AlgodToken = strings.Repeat("a", 64)

// AlgodNode runs the algod container and exposes the node commands the rest
// of the sandbox needs. It satisfies the catchup monitor's Node interface.
type AlgodNode struct {
	*container.Node

	channel  string
	hostPort int
	logger   *zap.Logger
}

func newAlgodNode(cli *dockerclient.Client, networkID, sandboxName string, cfg Config, logger *zap.Logger) *AlgodNode {
	log := logger.With(zap.String("component", "algod"))
	image := container.NewImage(cfg.Algod.Image, cfg.Algod.Tag, "")
	name := sandboxName + "-algod"
	return &AlgodNode{
		Node:     container.NewNode(cli, networkID, sandboxName, image, algodHome, name, log),
		channel:  cfg.Channel,
		hostPort: cfg.Algod.HostPort,
		logger:   log,
	}
}

// HostName returns the node's hostname on the sandbox network.
func (n *AlgodNode) HostName() string {
	return container.CondenseHostName(n.Name())
}

// create creates the container with the node's ports published on localhost.
func (n *AlgodNode) create(ctx context.Context) error {
	ports := nat.PortMap{
		nat.Port(algodPort): {{HostIP: "127.0.0.1", HostPort: strconv.Itoa(n.hostPort)}},
		nat.Port(kmdPort):   {},
	}
	env := []string{
		"NETWORK=" + n.channel,
		"TOKEN=" + AlgodToken,
		"START_KMD=1",
	}
	return n.CreateContainer(ctx, container.CreateConfig{
		Image:        n.Image,
		NetworkID:    n.NetworkID,
		Hostname:     n.HostName(),
		CleanupLabel: n.SandboxName,
		PortBindings: ports,
		Binds:        n.Bind(),
		Env:          env,
	})
}

// Start creates and starts the container, then blocks until the node
// answers status queries.
func (n *AlgodNode) Start(ctx context.Context) error {
	if err := container.EnsurePulled(ctx, n.DockerClient, n.Image); err != nil {
		return err
	}
	if err := n.CreateAndSetupVolume(ctx, n.Name()+"-data"); err != nil {
		return err
	}
	if err := n.create(ctx); err != nil {
		return err
	}
	if err := n.StartContainer(ctx); err != nil {
		return err
	}
	return n.waitReady(ctx)
}

// waitReady polls the node until it responds to a status query.
func (n *AlgodNode) waitReady(ctx context.Context) error {
	// give the container a moment to come online before the first poll.
	time.Sleep(2 * time.Second)

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	timeout := time.After(2 * time.Minute)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for node: %w", ctx.Err())
		case <-timeout:
			return fmt.Errorf("node did not come online within timeout")
		case <-ticker.C:
			if _, err := n.Status(ctx); err != nil {
				continue // retry on transient error
			}
			n.logger.Info("node is online")
			return nil
		}
	}
}

// Status returns the node's current status as the raw text the node binary
// prints. Callers parse it; no retrying happens here.
func (n *AlgodNode) Status(ctx context.Context) (string, error) {
	stdout, _, err := n.Exec(ctx, []string{"goal", "node", "status", "-d", algodDataDir}, nil)
	if err != nil {
		return "", err
	}
	return string(stdout), nil
}

// StartCatchup instructs the node to fast-catchup to the given catchpoint.
func (n *AlgodNode) StartCatchup(ctx context.Context, label string) error {
	_, stderr, err := n.Exec(ctx, []string{"goal", "node", "catchup", label, "-d", algodDataDir}, nil)
	if err != nil {
		return fmt.Errorf("requesting catchup to %q: %w (stderr=%q)", label, err, stderr)
	}
	return nil
}

// Goal forwards an arbitrary goal command into the container and returns its
// combined output.
func (n *AlgodNode) Goal(ctx context.Context, args ...string) (string, error) {
	cmd := append([]string{"goal"}, args...)
	stdout, stderr, err := n.Exec(ctx, cmd, []string{"ALGORAND_DATA=" + algodDataDir})
	out := string(stdout)
	if len(stderr) > 0 {
		out += string(stderr)
	}
	return out, err
}

// CopyIn copies content into the node's data directory under relPath, e.g.
// for importing genesis files or keys.
func (n *AlgodNode) CopyIn(ctx context.Context, relPath string, content []byte) error {
	return n.WriteFile(ctx, "data/"+relPath, content)
}
