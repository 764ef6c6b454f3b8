package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type sweepOptions struct {
	force   bool
	timeout time.Duration
}

func newSweepCmd(root *rootOptions) *cobra.Command {
	opts := &sweepOptions{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the expiry sweep, start notifier and side channel teardown once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(root)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			elector := a.container.LeaderElector
			if !elector.Campaign(ctx) && !opts.force {
				return fmt.Errorf("another instance holds the scheduler lease; use --force to run anyway")
			}
			defer elector.Resign(context.WithoutCancel(ctx))

			if err := a.container.Scheduler.RunOnce(ctx); err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "sweep completed")
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.force, "force", false, "run even when another instance holds the scheduler lease")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "upper bound for the whole run")
	return cmd
}
