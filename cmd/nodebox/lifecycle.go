package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sandboxtools/nodebox/internal/dockernet"
)

func newUpCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create and start the sandbox containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}

			s, err := a.buildSandbox(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Bringing up sandbox %q on channel %q...\n", s.Name(), a.cfg.Channel)
			if err := s.Start(ctx); err != nil {
				return err
			}

			color.Green("Sandbox is up.")
			fmt.Fprintf(cmd.OutOrStdout(), "  algod:   http://127.0.0.1:%d\n", a.cfg.Algod.HostPort)
			fmt.Fprintf(cmd.OutOrStdout(), "  indexer: http://127.0.0.1:%d\n", a.cfg.Indexer.HostPort)
			return nil
		},
	}
}

func newDownCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop the sandbox containers without removing them",
		Args:  cobra.NoArgs,
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
			if err := s.Stop(ctx); err != nil {
				return err
			}
			color.Yellow("Sandbox stopped.")
			return nil
		},
	}
}

func newCleanCmd(flags *rootFlags) *cobra.Command {
	var keepVolumes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the sandbox containers, volumes, and network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}

			// Label-based cleanup works whether or not the containers are
			// still up, so no attach is needed here.
			if err := dockernet.Cleanup(ctx, a.logger, a.cli, a.name, keepVolumes); err != nil {
				return err
			}
			color.Yellow("Sandbox removed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepVolumes, "keep-volumes", false, "keep data volumes")
	return cmd
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show container states and the node's status",
		Args:  cobra.NoArgs,
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
			out, err := s.Status(ctx)
			fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}
