package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sandboxtools/nodebox/catchup"
	"github.com/sandboxtools/nodebox/sandbox"
)

func newCatchupCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "catchup [catchpoint]",
		Short: "Fast-catchup the node to a catchpoint and monitor progress",
		Long: `Fast-catchup the node to a catchpoint and monitor progress.

Without an argument, the channel's latest catchpoint label is fetched from
the profile's catchpoint URL. Catchup runs in two phases: account state is
restored first, then the blocks between the catchpoint and the tip are
downloaded. Progress for each phase is rendered as a single in-place bar.`,
		Args: cobra.MaximumNArgs(1),
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

			var label string
			if len(args) == 1 {
				label = args[0]
			} else {
				label, err = sandbox.LatestCatchpoint(ctx, a.cfg.CatchpointURL, a.cfg.Channel)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Using latest %s catchpoint: %s\n", a.cfg.Channel, label)
			}

			if timeout := time.Duration(a.cfg.Catchup.Timeout); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			monitor := catchup.NewMonitor(
				s.Algod(),
				catchup.NewBarReporter(cmd.OutOrStdout()),
				a.logger,
				catchup.Config{
					Interval:    time.Duration(a.cfg.Catchup.Interval),
					AbsentPolls: a.cfg.Catchup.AbsentPolls,
				},
			)
			if err := monitor.Run(ctx, label); err != nil {
				return err
			}

			color.Green("Fast catchup complete.")
			return nil
		},
	}
}
