package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/gridpick/internal/adapters/http/api"
	"github.com/okian/gridpick/internal/client"
	"github.com/okian/gridpick/internal/config"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/weekendgen"
	"github.com/okian/gridpick/pkg/logger"
)

const (
	defaultServerURL = "http://localhost:9080"
	defaultTimeout   = 30 * time.Second
)

type submitOptions struct {
	url       string
	weekend   string
	seed      uint64
	requestID string
	wildcard  bool
	wait      bool
	top       int
	timeout   time.Duration
	json      bool
}

func newSubmitCmd(root *rootOptions) *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a weekend to a running server",
		Long:  "Posts a weekend from a YAML file, or a generated one when no file is given, and optionally waits for the ranked board.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := opts.load()
			if err != nil {
				return err
			}
			return opts.submit(cmd, root, w)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", defaultServerURL, "Base URL of the server")
	cmd.Flags().StringVarP(&opts.weekend, "weekend", "w", "", "Path to the weekend YAML file (generated from --seed when empty)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Generator seed when no weekend file is given")
	cmd.Flags().StringVar(&opts.requestID, "request-id", "", "Idempotency key; repeats return the original job")
	cmd.Flags().BoolVar(&opts.wildcard, "wildcard", false, "Play the wildcard")
	cmd.Flags().BoolVar(&opts.wait, "wait", true, "Wait for the job and print its board")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 10, "Number of board entries to print")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "Overall timeout")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the job and board as JSON")
	return cmd
}

func (o *submitOptions) load() (model.Weekend, error) {
	var (
		w   model.Weekend
		err error
	)
	if o.weekend != "" {
		w, err = config.LoadWeekend(o.weekend)
	} else {
		w, err = weekendgen.Generate(weekendgen.DefaultConfig(o.seed))
	}
	if err != nil {
		return w, err
	}
	if o.wildcard {
		w.UseWildcard = true
	}
	return w, nil
}

func (o *submitOptions) submit(cmd *cobra.Command, root *rootOptions, w model.Weekend) error { //nolint:gocritic // hugeParam: passed through once
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	out := cmd.OutOrStdout()
	c := client.New(o.url, client.WithTimeout(o.timeout))

	ack, err := c.Submit(ctx, o.requestID, w)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	root.log.Info(ctx, "job submitted", logger.String("job_id", ack.JobID), logger.String("status", ack.Status))
	if !o.json {
		fmt.Fprintf(out, "Job %s %s\n", ack.JobID, ack.Status)
	}
	if !o.wait {
		if o.json {
			return printJSON(out, ack)
		}
		return nil
	}

	job, err := c.Wait(ctx, ack.JobID)
	if err != nil {
		return err
	}
	board, err := c.Board(ctx, ack.JobID, o.top)
	if err != nil {
		return err
	}
	if o.json {
		return printJSON(out, struct {
			Job   api.JobResponse `json:"job"`
			Board []api.Entry     `json:"board"`
		}{job, board})
	}
	fmt.Fprintln(out)
	printBoard(out, job.Summary.Considered, job.Summary.Affordable, w.UseWildcard, board)
	return nil
}
