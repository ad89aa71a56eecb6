package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contactkeval/implied-vol/internal/calculator"
	"github.com/contactkeval/implied-vol/internal/config"
	"github.com/contactkeval/implied-vol/internal/ivol"
	"github.com/contactkeval/implied-vol/internal/logger"
)

// app is what every subcommand needs once flags and config are resolved.
type app struct {
	cfg  *config.Config
	calc *calculator.Calculator
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath   string
		verbosity int
		a         = &app{}
	)

	root := &cobra.Command{
		Use:           "implied-vol",
		Short:         "Black-Scholes pricing and implied volatility",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := config.New()
			if f := cmd.Flags().Lookup("verbosity"); f != nil && f.Changed {
				v.Set("log.verbosity", verbosity)
			}
			cfg, err := config.Load(v, cfgPath)
			if err != nil {
				return err
			}
			logger.SetVerbosity(cfg.Log.Verbosity)

			solver, err := ivol.New(ivol.WithConfig(cfg.Solver))
			if err != nil {
				return fmt.Errorf("solver: %w", err)
			}
			a.cfg = cfg
			a.calc = calculator.New(solver, nil)
			logger.Debugf("solver bracket [%g, %g] tol=%g max_iter=%d",
				cfg.Solver.LowerBound, cfg.Solver.UpperBound, cfg.Solver.Tolerance, cfg.Solver.MaxIterations)
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML, JSON or TOML config file")
	root.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 1, "log verbosity: 0=error 1=info 2=debug 3=trace")

	root.AddCommand(
		newSolveCmd(a),
		newPriceCmd(a),
		newQuoteCmd(a),
		newServeCmd(a),
	)
	return root
}
