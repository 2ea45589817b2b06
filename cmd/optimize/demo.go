package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/gridpick/internal/weekendgen"
)

type demoOptions struct {
	seed         uint64
	drivers      int
	constructors int
	top          int
	wildcard     bool
	json         bool
}

func newDemoCmd(root *rootOptions) *cobra.Command {
	opts := &demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Optimize a generated weekend",
		Long:  "Generates a reproducible synthetic weekend from a seed and optimizes it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := weekendgen.DefaultConfig(opts.seed)
			cfg.Drivers = opts.drivers
			cfg.Constructors = opts.constructors
			w, err := weekendgen.Generate(cfg)
			if err != nil {
				return err
			}
			w.UseWildcard = opts.wildcard
			return optimizeAndPrint(cmd, root, w, opts.top, opts.json)
		},
	}

	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Generator seed")
	cmd.Flags().IntVar(&opts.drivers, "drivers", weekendgen.DefaultDrivers, "Number of drivers")
	cmd.Flags().IntVar(&opts.constructors, "constructors", weekendgen.DefaultConstructors, "Number of constructors")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 10, "Number of teams to keep")
	cmd.Flags().BoolVar(&opts.wildcard, "wildcard", false, "Play the wildcard")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	return cmd
}
