package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/gridpick/internal/client"
	"github.com/okian/gridpick/internal/weekendgen"
)

const defaultLoadTimeout = 10 * time.Minute

type loadOptions struct {
	url     string
	cfg     client.LoadConfig
	timeout time.Duration
}

func newLoadCmd(root *rootOptions) *cobra.Command {
	opts := &loadOptions{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive a running server with generated weekends",
		Long:  "Submits many generated weekends concurrently, waits for every job and checks that each board is ordered.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			c := client.New(opts.url)
			stats, err := client.RunLoad(ctx, c, opts.cfg, root.log.Named("load"))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted: %d\nAccepted: %d\nDuplicate: %d\nRejected: %d\nSucceeded: %d\nFailed: %d\nDuration: %s\n",
				stats.Submitted, stats.Accepted, stats.Duplicate, stats.Rejected, stats.Succeeded, stats.Failed, stats.Duration)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", defaultServerURL, "Base URL of the server")
	cmd.Flags().IntVar(&opts.cfg.Weekends, "weekends", 100, "Number of weekends to submit")
	cmd.Flags().IntVar(&opts.cfg.Workers, "workers", runtime.NumCPU()*2, "Concurrent submitters")
	cmd.Flags().Uint64Var(&opts.cfg.Seed, "seed", 1, "Seed of the first weekend")
	cmd.Flags().IntVar(&opts.cfg.Drivers, "drivers", weekendgen.DefaultDrivers, "Drivers per weekend")
	cmd.Flags().IntVar(&opts.cfg.Constructors, "constructors", weekendgen.DefaultConstructors, "Constructors per weekend")
	cmd.Flags().IntVarP(&opts.cfg.Top, "top", "n", 10, "Board entries fetched per job")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultLoadTimeout, "Overall timeout")
	return cmd
}
