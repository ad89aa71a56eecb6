package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/contactkeval/implied-vol/internal/calculator"
	"github.com/contactkeval/implied-vol/internal/pricing"
	"github.com/contactkeval/implied-vol/internal/quote"
	"github.com/contactkeval/implied-vol/internal/report"
)

func newQuoteCmd(a *app) *cobra.Command {
	var (
		strike     float64
		expiry     string
		kind       string
		rate       string
		withReport bool
	)

	cmd := &cobra.Command{
		Use:   "quote UNDERLYING",
		Short: "fetch a market quote and solve its implied volatility",
		Example: `  implied-vol quote SPY --strike 580 --expiry 2025-01-17 --kind call
  IVOL_QUOTES_PROVIDER=csv implied-vol quote SPY --strike 580 --expiry 2025-01-17`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := pricing.ParseKind(kind)
			if err != nil {
				return err
			}
			exp, err := quote.ParseExpiry(expiry)
			if err != nil {
				return err
			}

			prov, err := quote.FromConfig(a.cfg.Quotes)
			if err != nil {
				return err
			}
			c := quote.Contract{Underlying: args[0], Strike: strike, Expiry: exp, Kind: k}
			q, err := prov.GetQuote(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Symbol(), err)
			}

			if rate == "" {
				rate = strconv.FormatFloat(a.cfg.Quotes.Rate, 'f', -1, 64)
			}
			form := calculator.Form{
				Spot:        strconv.FormatFloat(q.Spot, 'f', -1, 64),
				Strike:      strconv.FormatFloat(strike, 'f', -1, 64),
				Days:        strconv.FormatFloat(q.DaysToExpiry(), 'f', -1, 64),
				Rate:        rate,
				MarketPrice: strconv.FormatFloat(q.Mid(), 'f', -1, 64),
				Kind:        string(k),
			}
			out := a.calc.ImpliedVol(cmd.Context(), form)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s spot=%s mid=%s days=%s source=%s\n",
				c.Symbol(), form.Spot, form.MarketPrice, form.Days, q.Source)
			fmt.Fprintln(w, out.Message)

			if withReport {
				rec := report.NewRecord(time.Now(), form, out)
				rec.Symbol = c.Symbol()
				rec.Source = q.Source
				return writeReport(rec, a.cfg.Report.Dir)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&strike, "strike", 0, "strike price")
	f.StringVar(&expiry, "expiry", "", "expiration date, YYYY-MM-DD")
	f.StringVar(&kind, "kind", "call", "call or put")
	f.StringVar(&rate, "rate", "", "risk-free rate (defaults to quotes.rate)")
	f.BoolVar(&withReport, "report", false, "write solve.json and append to solves.csv in report.dir")
	_ = cmd.MarkFlagRequired("strike")
	_ = cmd.MarkFlagRequired("expiry")
	return cmd
}
