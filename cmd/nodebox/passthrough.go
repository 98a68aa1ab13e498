package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/spf13/cobra"
)

func newGoalCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "goal [args...]",
		Short: "Forward a goal command into the node container",
		Example: `  nodebox goal node status
  nodebox goal account list`,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}

			s, err := a.attachSandbox(ctx)
			if err != nil {
				return err
			}
			out, err := s.Algod().Goal(ctx, args...)
			fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func newLogsCmd(flags *rootFlags) *cobra.Command {
	var follow bool
	var tail string

	cmd := &cobra.Command{
		Use:       "logs [algod|indexer|indexer-db]",
		Short:     "Print a sandbox container's logs",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"algod", "indexer", "indexer-db"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}

			s, err := a.attachSandbox(ctx)
			if err != nil {
				return err
			}

			var containerID string
			switch args[0] {
			case "algod":
				containerID = s.Algod().ContainerID()
			case "indexer":
				containerID = s.Indexer().ContainerID()
			case "indexer-db":
				containerID = s.DB().ContainerID()
			default:
				return fmt.Errorf("unknown target %q", args[0])
			}

			rc, err := a.cli.ContainerLogs(ctx, containerID, containertypes.LogsOptions{
				ShowStdout: true,
				ShowStderr: true,
				Follow:     follow,
				Tail:       tail,
			})
			if err != nil {
				return fmt.Errorf("reading container logs: %w", err)
			}
			defer rc.Close()

			_, err = stdcopy.StdCopy(cmd.OutOrStdout(), cmd.ErrOrStderr(), rc)
			if err != nil && err != io.EOF {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow log output")
	cmd.Flags().StringVar(&tail, "tail", "all", "number of lines to show from the end")
	return cmd
}

func newCopyCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <file>",
		Short: "Copy a host file into the node's data directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}

			s, err := a.attachSandbox(ctx)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			name := filepath.Base(args[0])
			if err := s.Algod().CopyIn(ctx, name, content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %s into the node's data directory.\n", name)
			return nil
		},
	}
}
