// Package calculator adapts text input from a form, command line or HTTP
// request to the pricing and implied volatility core, and renders the
// outcome as a user-facing message.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/implied-vol/internal/ivol"
	"github.com/contactkeval/implied-vol/internal/logger"
	"github.com/contactkeval/implied-vol/internal/pricing"
)

// DaysPerYear converts time to expiry from days to years.
const DaysPerYear = 365

// Messages shown to the user.
const (
	MsgInvalidInput    = "Please enter valid input values."
	MsgNoConvergence   = "Implied volatility did not converge."
	msgImpliedVol      = "Implied Volatility: %s%%"
	msgOptionPrice     = "Option Price: %s"
	msgUnsupportedKind = "Unsupported option type: %s."
	msgOutOfBracket    = "No implied volatility in [%s%%, %s%%] matches price %s."
)

// Form is the raw implied volatility input. Days is time to expiry in days.
type Form struct {
	Spot        string `json:"spot"`
	Strike      string `json:"strike"`
	Days        string `json:"days"`
	Rate        string `json:"rate"`
	MarketPrice string `json:"price"`
	Kind        string `json:"kind"`
}

// PriceForm is the raw input for a theoretical price.
type PriceForm struct {
	Spot   string `json:"spot"`
	Strike string `json:"strike"`
	Days   string `json:"days"`
	Rate   string `json:"rate"`
	Vol    string `json:"vol"`
	Kind   string `json:"kind"`
}

// Outcome is the rendered result of a calculation. Err is nil on success;
// Message is always set.
type Outcome struct {
	Volatility float64 `json:"volatility,omitempty"`
	Percent    string  `json:"percent,omitempty"`
	Iterations int     `json:"iterations,omitempty"`
	Price      float64 `json:"price,omitempty"`
	Message    string  `json:"message"`
	Err        error   `json:"-"`
}

// Calculator runs forms through a configured solver.
type Calculator struct {
	solver *ivol.Solver
	pricer *pricing.Pricer
}

// New returns a Calculator using s for implied volatility and p for prices.
// A nil pricer uses the default normal CDF.
func New(s *ivol.Solver, p *pricing.Pricer) *Calculator {
	if p == nil {
		p = pricing.NewPricer(nil)
	}
	return &Calculator{solver: s, pricer: p}
}

// ImpliedVol parses f, validates it and solves for implied volatility.
// Invalid input short-circuits before the solver is invoked.
func (c *Calculator) ImpliedVol(ctx context.Context, f Form) Outcome {
	in, err := ParseForm(f)
	if err != nil {
		return c.failure(err)
	}

	res, err := c.solver.Solve(ctx, in.Request())
	if err != nil {
		return c.failure(err)
	}

	pct := Percent(res.Volatility)
	logger.Debugf("implied vol %s%% after %d iterations", pct, res.Iterations)
	return Outcome{
		Volatility: res.Volatility,
		Percent:    pct,
		Iterations: res.Iterations,
		Message:    fmt.Sprintf(msgImpliedVol, pct),
	}
}

// Price parses f and returns the theoretical option price.
func (c *Calculator) Price(f PriceForm) Outcome {
	in, err := ParsePriceForm(f)
	if err != nil {
		return c.failure(err)
	}

	price, err := c.pricer.Price(in.Params())
	if err != nil {
		return c.failure(err)
	}
	return Outcome{
		Price:   price,
		Message: fmt.Sprintf(msgOptionPrice, decimal.NewFromFloat(price).StringFixed(4)),
	}
}

// Percent renders vol as a percentage with two decimals.
func Percent(vol float64) string {
	return decimal.NewFromFloat(vol).Shift(2).StringFixed(2)
}

func (c *Calculator) failure(err error) Outcome {
	logger.Debugf("calculation rejected: %v", err)
	return Outcome{Message: c.Message(err), Err: err}
}

// Message renders err for the user.
func (c *Calculator) Message(err error) string {
	var bracket *ivol.BracketError
	var kind *KindError
	switch {
	case errors.As(err, &kind):
		name := strings.TrimSpace(kind.Kind)
		if name == "" {
			name = "(empty)"
		}
		return fmt.Sprintf(msgUnsupportedKind, name)
	case errors.As(err, &bracket):
		cfg := c.solver.Config()
		return fmt.Sprintf(msgOutOfBracket,
			Percent(cfg.LowerBound), Percent(cfg.UpperBound),
			decimal.NewFromFloat(bracket.MarketPrice).StringFixed(2))
	case errors.Is(err, ivol.ErrConvergenceFailure):
		return MsgNoConvergence
	case errors.Is(err, pricing.ErrUnsupportedOptionKind):
		return fmt.Sprintf(msgUnsupportedKind, "unknown")
	}
	return MsgInvalidInput
}
