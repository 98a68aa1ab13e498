// Package sandbox assembles and manages a local multi-container node
// sandbox: an algod node, a block indexer, and the indexer's database, all
// on an isolated docker network.
package sandbox

import (
	"context"
	"fmt"
	"strings"

	dockerclient "github.com/moby/moby/client"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sandboxtools/nodebox/internal/dockernet"
)

// DefaultName is the sandbox instance name used when none is configured. It
// prefixes every container, volume, and network the sandbox creates.
const DefaultName = "nodebox"

// Sandbox is a handle on the three sandbox containers.
type Sandbox struct {
	name      string
	cfg       Config
	logger    *zap.Logger
	cli       *dockerclient.Client
	networkID string

	algod   *AlgodNode
	indexer *IndexerNode
	db      *PostgresNode
}

// Builder configures a Sandbox before construction.
type Builder struct {
	name   string
	cfg    Config
	logger *zap.Logger
	cli    *dockerclient.Client
}

// NewBuilder creates a Builder with the default profile.
func NewBuilder(name string) *Builder {
	if name == "" {
		name = DefaultName
	}
	return &Builder{
		name: name,
		cfg:  DefaultConfig(),
	}
}

// WithConfig sets the sandbox profile.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithDockerClient sets the Docker client.
func (b *Builder) WithDockerClient(cli *dockerclient.Client) *Builder {
	b.cli = cli
	return b
}

// Build finds or creates the sandbox network and constructs node handles.
// No containers are created until Start.
func (b *Builder) Build(ctx context.Context) (*Sandbox, error) {
	if b.cli == nil {
		return nil, fmt.Errorf("docker client is required")
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}

	networkID, err := dockernet.FindNetwork(ctx, b.cli, b.name)
	if err != nil {
		return nil, err
	}
	if networkID == "" {
		networkID, err = dockernet.CreateNetwork(ctx, b.cli, b.name, b.name)
		if err != nil {
			return nil, err
		}
		b.logger.Info("created sandbox network", zap.String("network_id", networkID))
	}

	s := &Sandbox{
		name:      b.name,
		cfg:       b.cfg,
		logger:    b.logger,
		cli:       b.cli,
		networkID: networkID,
	}
	s.algod = newAlgodNode(b.cli, networkID, b.name, b.cfg, b.logger)
	s.indexer = newIndexerNode(b.cli, networkID, b.name, b.cfg, b.logger)
	s.db = newPostgresNode(b.cli, networkID, b.name, b.cfg, b.logger)
	return s, nil
}

// Name returns the sandbox instance name.
func (s *Sandbox) Name() string { return s.name }

// Config returns the profile the sandbox was built with.
func (s *Sandbox) Config() Config { return s.cfg }

// Algod returns the node container handle.
func (s *Sandbox) Algod() *AlgodNode { return s.algod }

// Indexer returns the indexer container handle.
func (s *Sandbox) Indexer() *IndexerNode { return s.indexer }

// DB returns the database container handle.
func (s *Sandbox) DB() *PostgresNode { return s.db }

// Start brings up the database first, then the node and the indexer. The
// node and indexer start concurrently; the indexer only needs the database
// to accept connections before it boots.
func (s *Sandbox) Start(ctx context.Context) error {
	if err := s.db.Start(ctx); err != nil {
		return fmt.Errorf("starting database: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := s.algod.Start(egCtx); err != nil {
			return fmt.Errorf("starting node: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := s.indexer.Start(egCtx, s.algod, s.db); err != nil {
			return fmt.Errorf("starting indexer: %w", err)
		}
		return nil
	})
	return eg.Wait()
}

// Stop stops the sandbox containers without removing anything, so a later
// start resumes from the same state.
func (s *Sandbox) Stop(ctx context.Context) error {
	var errs []string
	for _, n := range []interface {
		StopContainer(context.Context) error
	}{s.indexer, s.algod, s.db} {
		if err := n.StopContainer(ctx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("stopping sandbox: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Clean removes the sandbox's containers, volumes, and network.
func (s *Sandbox) Clean(ctx context.Context, keepVolumes bool) error {
	return dockernet.Cleanup(ctx, s.logger, s.cli, s.name, keepVolumes)
}

// Attach resolves container IDs for an already-running sandbox so commands
// issued by a new process can reach it.
func (s *Sandbox) Attach(ctx context.Context) error {
	for _, n := range []interface {
		Discover(context.Context) (bool, error)
		Name() string
	}{s.algod, s.indexer, s.db} {
		found, err := n.Discover(ctx)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("container %s not found; is the sandbox up?", n.Name())
		}
	}
	return nil
}

// Status summarizes the sandbox's containers and the node's own status text.
func (s *Sandbox) Status(ctx context.Context) (string, error) {
	var sb strings.Builder
	for _, n := range []interface {
		Running(context.Context) (bool, error)
		Name() string
	}{s.algod, s.indexer, s.db} {
		running, err := n.Running(ctx)
		if err != nil {
			return "", err
		}
		state := "stopped"
		if running {
			state = "running"
		}
		fmt.Fprintf(&sb, "%-28s %s\n", n.Name(), state)
	}

	nodeStatus, err := s.algod.Status(ctx)
	if err != nil {
		return sb.String(), fmt.Errorf("querying node status: %w", err)
	}
	sb.WriteString("\n")
	sb.WriteString(nodeStatus)
	return sb.String(), nil
}
