package main

import (
	"context"
	"fmt"

	dockerclient "github.com/moby/moby/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sandboxtools/nodebox/sandbox"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	profile string
	name    string
	verbose bool
}

// app bundles what every command needs: a logger, a docker client, and the
// resolved sandbox profile.
type app struct {
	logger *zap.Logger
	cli    *dockerclient.Client
	cfg    sandbox.Config
	name   string
}

func newApp(ctx context.Context, flags *rootFlags) (*app, error) {
	logger, err := newLogger(flags.verbose)
	if err != nil {
		return nil, err
	}

	cli, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	cli.NegotiateAPIVersion(ctx)

	cfg := sandbox.DefaultConfig()
	if flags.profile != "" {
		cfg, err = sandbox.LoadConfig(flags.profile)
		if err != nil {
			return nil, err
		}
	}

	return &app{
		logger: logger,
		cli:    cli,
		cfg:    cfg,
		name:   flags.name,
	}, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return cfg.Build()
}

// buildSandbox constructs the sandbox handle without touching containers.
func (a *app) buildSandbox(ctx context.Context) (*sandbox.Sandbox, error) {
	return sandbox.NewBuilder(a.name).
		WithConfig(a.cfg).
		WithLogger(a.logger).
		WithDockerClient(a.cli).
		Build(ctx)
}

// attachSandbox resolves an already-running sandbox's containers.
func (a *app) attachSandbox(ctx context.Context) (*sandbox.Sandbox, error) {
	s, err := a.buildSandbox(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Attach(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "nodebox",
		Short:         "Manage a local multi-container blockchain node sandbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.profile, "profile", "", "path to a TOML sandbox profile")
	cmd.PersistentFlags().StringVar(&flags.name, "name", sandbox.DefaultName, "sandbox instance name")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")

	cmd.AddCommand(
		newUpCmd(flags),
		newDownCmd(flags),
		newCleanCmd(flags),
		newStatusCmd(flags),
		newCatchupCmd(flags),
		newGoalCmd(flags),
		newLogsCmd(flags),
		newCopyCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the nodebox version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
