package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/gridpick/internal/config"
	"github.com/okian/gridpick/internal/domain/optimizer"
	"github.com/okian/gridpick/internal/domain/scoring"
	"github.com/okian/gridpick/pkg/logger"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "optimize",
		Short:         "Fantasy F1 lineup optimizer",
		Long:          "optimize enumerates every affordable five-driver, two-constructor lineup for a race weekend and prints the best scoring ones.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (defaults to $"+config.EnvConfigFile+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	cmd.AddCommand(
		newRunCmd(opts),
		newDemoCmd(opts),
		newSubmitCmd(opts),
		newLoadCmd(opts),
	)
	return cmd
}

// setup loads configuration and initialises logging on stderr so reports on
// stdout stay clean.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load(cmd.Context())
	}
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}

	if err := logger.InitWith(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	o.cfg = cfg
	o.log = logger.Named("optimize")
	return nil
}

// optimizer builds a search engine from config. topK overrides the
// configured board size when positive.
func (o *rootOptions) optimizer(topK int) *optimizer.Optimizer {
	if topK <= 0 {
		topK = o.cfg.TopK
	}
	return optimizer.New(
		optimizer.WithTopK(topK),
		optimizer.WithWorkers(o.cfg.SearchWorkers),
		optimizer.WithPolicy(scoring.NewPolicy(
			scoring.WithFreeSubstitutions(o.cfg.FreeSubstitutions),
			scoring.WithSubstitutionPenalty(o.cfg.SubstitutionPenalty),
		)),
		optimizer.WithLogger(o.log.Named("optimizer")),
	)
}
