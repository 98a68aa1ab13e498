package sandbox

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/go-connections/nat"
	dockerclient "github.com/moby/moby/client"
	"go.uber.org/zap"

	"github.com/sandboxtools/nodebox/internal/container"
)

const (
	postgresHome = "/var/lib/postgresql/data"
	postgresPort = "5432/tcp"

	dbUser     = "algorand"
	dbPassword = "algorand"
	dbName     = "indexer_db"
)

// PostgresNode runs the indexer's database.
type PostgresNode struct {
	*container.Node

	hostPort int
	logger   *zap.Logger
}

func newPostgresNode(cli *dockerclient.Client, networkID, sandboxName string, cfg Config, logger *zap.Logger) *PostgresNode {
	log := logger.With(zap.String("component", "indexer-db"))
	image := container.NewImage(cfg.DB.Image, cfg.DB.Tag, "")
	name := sandboxName + "-indexer-db"
	return &PostgresNode{
		Node:     container.NewNode(cli, networkID, sandboxName, image, postgresHome, name, log),
		hostPort: cfg.DB.HostPort,
		logger:   log,
	}
}

func (n *PostgresNode) HostName() string {
	return container.CondenseHostName(n.Name())
}

// ConnString returns the in-network connection string the indexer uses.
func (n *PostgresNode) ConnString() string {
	return fmt.Sprintf("host=%s port=5432 user=%s password=%s dbname=%s sslmode=disable",
		n.HostName(), dbUser, dbPassword, dbName)
}

// Start creates and starts the database, then blocks until it accepts
// connections.
func (n *PostgresNode) Start(ctx context.Context) error {
	if err := container.EnsurePulled(ctx, n.DockerClient, n.Image); err != nil {
		return err
	}
	if err := n.CreateAndSetupVolume(ctx, n.Name()+"-data"); err != nil {
		return err
	}

	ports := nat.PortMap{
		nat.Port(postgresPort): {{HostIP: "127.0.0.1", HostPort: strconv.Itoa(n.hostPort)}},
	}
	env := []string{
		"POSTGRES_USER=" + dbUser,
		"POSTGRES_PASSWORD=" + dbPassword,
		"POSTGRES_DB=" + dbName,
	}
	err := n.CreateContainer(ctx, container.CreateConfig{
		Image:        n.Image,
		NetworkID:    n.NetworkID,
		Hostname:     n.HostName(),
		CleanupLabel: n.SandboxName,
		PortBindings: ports,
		Binds:        n.Bind(),
		Env:          env,
	})
	if err != nil {
		return err
	}
	if err := n.StartContainer(ctx); err != nil {
		return err
	}
	return n.waitReady(ctx)
}

func (n *PostgresNode) waitReady(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	timeout := time.After(time.Minute)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for database: %w", ctx.Err())
		case <-timeout:
			return fmt.Errorf("database did not accept connections within timeout")
		case <-ticker.C:
			if _, _, err := n.Exec(ctx, []string{"pg_isready", "-U", dbUser, "-d", dbName}, nil); err != nil {
				continue
			}
			n.logger.Info("database is ready")
			return nil
		}
	}
}
