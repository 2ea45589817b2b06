package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/gridpick/internal/config"
	"github.com/okian/gridpick/internal/domain/model"
)

type runOptions struct {
	weekend  string
	top      int
	wildcard bool
	budget   float64
	json     bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Optimize a weekend described in a YAML file",
		Long:  "Loads scores, prices and the current roster from a YAML file and prints the best affordable lineups.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := config.LoadWeekend(opts.weekend)
			if err != nil {
				return err
			}
			if opts.wildcard {
				w.UseWildcard = true
			}
			if cmd.Flags().Changed("budget") {
				w.Budget = model.Float64(opts.budget)
			}
			return optimizeAndPrint(cmd, root, w, opts.top, opts.json)
		},
	}

	cmd.Flags().StringVarP(&opts.weekend, "weekend", "w", "", "Path to the weekend YAML file (required)")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 0, "Number of teams to keep (defaults to top_k)")
	cmd.Flags().BoolVar(&opts.wildcard, "wildcard", false, "Play the wildcard: substitutions cost nothing")
	cmd.Flags().Float64Var(&opts.budget, "budget", 0, "Spending limit (defaults to roster value plus remaining cost cap)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	if err := cmd.MarkFlagRequired("weekend"); err != nil {
		panic(fmt.Sprintf("failed to mark weekend flag as required: %v", err))
	}
	return cmd
}

// optimizeAndPrint runs one search in-process and writes the report.
func optimizeAndPrint(cmd *cobra.Command, root *rootOptions, w model.Weekend, top int, asJSON bool) error { //nolint:gocritic // hugeParam: passed through once
	res, err := root.optimizer(top).Optimize(cmd.Context(), w)
	if err != nil {
		return fmt.Errorf("optimize %s: %w", w.Track, err)
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	printReport(cmd.OutOrStdout(), w, res)
	return nil
}
