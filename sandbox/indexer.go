package sandbox

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/docker/go-connections/nat"
	dockerclient "github.com/moby/moby/client"
	"go.uber.org/zap"

	"github.com/sandboxtools/nodebox/internal/container"
)

const (
	indexerHome = "/opt/indexer"
	indexerPort = "8980/tcp"
)

// IndexerNode runs the block indexer, reading from algod and writing to the
// sandbox's postgres database.
type IndexerNode struct {
	*container.Node

	hostPort int
	logger   *zap.Logger
}

func newIndexerNode(cli *dockerclient.Client, networkID, sandboxName string, cfg Config, logger *zap.Logger) *IndexerNode {
	log := logger.With(zap.String("component", "indexer"))
	image := container.NewImage(cfg.Indexer.Image, cfg.Indexer.Tag, "")
	name := sandboxName + "-indexer"
	return &IndexerNode{
		Node:     container.NewNode(cli, networkID, sandboxName, image, indexerHome, name, log),
		hostPort: cfg.Indexer.HostPort,
		logger:   log,
	}
}

func (n *IndexerNode) HostName() string {
	return container.CondenseHostName(n.Name())
}

// HostURL returns the indexer's API base URL on the host.
func (n *IndexerNode) HostURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", n.hostPort)
}

// Start creates and starts the indexer pointed at the given algod node and
// database, then blocks until its health endpoint answers.
func (n *IndexerNode) Start(ctx context.Context, algod *AlgodNode, db *PostgresNode) error {
	if err := container.EnsurePulled(ctx, n.DockerClient, n.Image); err != nil {
		return err
	}

	ports := nat.PortMap{
		nat.Port(indexerPort): {{HostIP: "127.0.0.1", HostPort: strconv.Itoa(n.hostPort)}},
	}
	cmd := []string{
		"daemon",
		"--server", ":8980",
		"--postgres", db.ConnString(),
		"--algod-net", algod.HostName() + ":4001",
		"--algod-token", AlgodToken,
	}
	err := n.CreateContainer(ctx, container.CreateConfig{
		Image:        n.Image,
		NetworkID:    n.NetworkID,
		Hostname:     n.HostName(),
		CleanupLabel: n.SandboxName,
		PortBindings: ports,
		Cmd:          cmd,
	})
	if err != nil {
		return err
	}
	if err := n.StartContainer(ctx); err != nil {
		return err
	}
	return n.waitReady(ctx)
}

func (n *IndexerNode) waitReady(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	timeout := time.After(2 * time.Minute)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for indexer: %w", ctx.Err())
		case <-timeout:
			return fmt.Errorf("indexer did not become healthy within timeout")
		case <-ticker.C:
			if n.healthy(ctx) {
				n.logger.Info("indexer is healthy")
				return nil
			}
		}
	}
}

func (n *IndexerNode) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.HostURL()+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
