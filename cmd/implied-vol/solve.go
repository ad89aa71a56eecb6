package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/contactkeval/implied-vol/internal/calculator"
	"github.com/contactkeval/implied-vol/internal/logger"
	"github.com/contactkeval/implied-vol/internal/report"
)

func newSolveCmd(a *app) *cobra.Command {
	var (
		form       calculator.Form
		withReport bool
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "solve implied volatility from a market price",
		Example: `  implied-vol solve --spot 100 --strike 100 --days 365 --rate 0.05 --price 10.4506 --kind call
  Implied Volatility: 20.00%`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.calc.ImpliedVol(cmd.Context(), form)
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)

			if withReport {
				rec := report.NewRecord(time.Now(), form, out)
				if err := writeReport(rec, a.cfg.Report.Dir); err != nil {
					return err
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.Spot, "spot", "", "underlying price")
	f.StringVar(&form.Strike, "strike", "", "strike price")
	f.StringVar(&form.Days, "days", "", "time to expiry in days")
	f.StringVar(&form.Rate, "rate", "", "risk-free rate, continuously compounded")
	f.StringVar(&form.MarketPrice, "price", "", "observed option price")
	f.StringVar(&form.Kind, "kind", "call", "call or put")
	f.BoolVar(&withReport, "report", false, "write solve.json and append to solves.csv in report.dir")
	return cmd
}

func newPriceCmd(a *app) *cobra.Command {
	var form calculator.PriceForm

	cmd := &cobra.Command{
		Use:   "price",
		Short: "theoretical Black-Scholes price",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := a.calc.Price(form)
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.Spot, "spot", "", "underlying price")
	f.StringVar(&form.Strike, "strike", "", "strike price")
	f.StringVar(&form.Days, "days", "", "time to expiry in days")
	f.StringVar(&form.Rate, "rate", "", "risk-free rate, continuously compounded")
	f.StringVar(&form.Vol, "vol", "", "volatility as a decimal, e.g. 0.2")
	f.StringVar(&form.Kind, "kind", "call", "call or put")
	return cmd
}

func writeReport(rec report.Record, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := report.WriteJSON(rec, dir); err != nil {
		return fmt.Errorf("write %s: %w", report.JSONFile, err)
	}
	if err := report.AppendCSV(rec, dir); err != nil {
		return err
	}
	logger.Infof("report written to %s", dir)
	return nil
}
