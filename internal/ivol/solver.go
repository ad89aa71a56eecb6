// Package ivol solves for the Black-Scholes implied volatility of an observed
// option price by bisection.
package ivol

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/contactkeval/implied-vol/internal/logger"
	"github.com/contactkeval/implied-vol/internal/normal"
	"github.com/contactkeval/implied-vol/internal/pricing"
)

var (
	// ErrInvalidParameter and ErrUnsupportedOptionKind are the pricing
	// errors, surfaced unchanged by the solver.
	ErrInvalidParameter      = pricing.ErrInvalidParameter
	ErrUnsupportedOptionKind = pricing.ErrUnsupportedOptionKind

	// ErrNoArbitrageFreeSolution means the market price is outside the price
	// range spanned by the volatility bracket.
	ErrNoArbitrageFreeSolution = errors.New("no arbitrage-free solution in volatility bracket")

	// ErrConvergenceFailure means the iteration cap was hit before the
	// bracket narrowed to the tolerance.
	ErrConvergenceFailure = errors.New("implied volatility did not converge")
)

// Request is an implied volatility query. Expiry is in years.
type Request struct {
	Spot        float64
	Strike      float64
	Expiry      float64
	Rate        float64
	MarketPrice float64
	Kind        pricing.Kind
}

// Result is the outcome of a solve. On ErrNoArbitrageFreeSolution it still
// carries the boundary volatility the bisection collapsed onto.
type Result struct {
	Volatility float64
	Iterations int
	Low        float64
	High       float64
}

// BracketError reports a market price the bracket cannot reproduce.
// It unwraps to ErrNoArbitrageFreeSolution.
type BracketError struct {
	MarketPrice float64
	// PriceLow and PriceHigh are the model prices at the bracket bounds.
	PriceLow  float64
	PriceHigh float64
	// Bound is the bracket bound the solution collapsed onto.
	Bound float64
}

func (e *BracketError) Error() string {
	return fmt.Sprintf("%s: market price %.6g outside [%.6g, %.6g] (collapsed to vol %.6g)",
		ErrNoArbitrageFreeSolution, e.MarketPrice, e.PriceLow, e.PriceHigh, e.Bound)
}

func (e *BracketError) Unwrap() error { return ErrNoArbitrageFreeSolution }

// Solver runs the bisection with a fixed configuration. A Solver is immutable
// after construction and safe for concurrent use.
type Solver struct {
	cfg    Config
	pricer *pricing.Pricer
}

// New builds a Solver from DefaultConfig with opts applied.
func New(opts ...Option) (*Solver, error) {
	s := &Solver{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if s.pricer == nil {
		s.pricer = pricing.NewPricer(normal.Default)
	}
	return s, nil
}

// Config returns the solver configuration.
func (s *Solver) Config() Config {
	return s.cfg
}

// Solve finds σ in [LowerBound, UpperBound] such that the model price
// matches req.MarketPrice.
//
// The bracket is halved until its width is at most Tolerance; the midpoint of
// the final bracket is returned. Price is assumed increasing in σ.
func (s *Solver) Solve(ctx context.Context, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}

	low, high := s.cfg.LowerBound, s.cfg.UpperBound
	params := pricing.Params{
		Spot:   req.Spot,
		Strike: req.Strike,
		Expiry: req.Expiry,
		Rate:   req.Rate,
		Kind:   req.Kind,
	}

	iter := 0
	for high-low > s.cfg.Tolerance {
		if iter >= s.cfg.MaxIterations {
			logger.Debugf("ivol: no convergence after %d iterations, bracket=[%g, %g]", iter, low, high)
			return Result{Volatility: (low + high) / 2, Iterations: iter, Low: low, High: high},
				fmt.Errorf("%w: bracket [%g, %g] wider than %g after %d iterations",
					ErrConvergenceFailure, low, high, s.cfg.Tolerance, iter)
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		mid := (low + high) / 2
		params.Vol = mid
		price, err := s.pricer.Price(params)
		if err != nil {
			return Result{}, err
		}

		logger.Tracef("ivol: iter=%d vol=%.8f price=%.8f target=%.8f", iter, mid, price, req.MarketPrice)

		if price > req.MarketPrice {
			high = mid
		} else {
			low = mid
		}
		iter++
	}

	res := Result{Volatility: (low + high) / 2, Iterations: iter, Low: low, High: high}
	if err := s.checkBracket(params, req.MarketPrice, res.Volatility); err != nil {
		logger.Debugf("ivol: %v", err)
		return res, err
	}
	return res, nil
}

// checkBracket tells a genuine root near a bound apart from a market price
// the bracket cannot reach.
func (s *Solver) checkBracket(params pricing.Params, marketPrice, vol float64) error {
	nearLow := vol-s.cfg.LowerBound <= s.cfg.Tolerance
	nearHigh := s.cfg.UpperBound-vol <= s.cfg.Tolerance
	if !nearLow && !nearHigh {
		return nil
	}

	params.Vol = s.cfg.LowerBound
	priceLow, err := s.pricer.Price(params)
	if err != nil {
		return err
	}
	params.Vol = s.cfg.UpperBound
	priceHigh, err := s.pricer.Price(params)
	if err != nil {
		return err
	}

	switch {
	case nearLow && marketPrice < priceLow:
		return &BracketError{MarketPrice: marketPrice, PriceLow: priceLow, PriceHigh: priceHigh, Bound: s.cfg.LowerBound}
	case nearHigh && marketPrice > priceHigh:
		return &BracketError{MarketPrice: marketPrice, PriceLow: priceLow, PriceHigh: priceHigh, Bound: s.cfg.UpperBound}
	}
	return nil
}

func validate(req Request) error {
	if err := pricing.ValidateMarket(req.Spot, req.Strike, req.Expiry, req.Rate); err != nil {
		return err
	}
	if math.IsNaN(req.MarketPrice) || math.IsInf(req.MarketPrice, 0) || req.MarketPrice <= 0 {
		return fmt.Errorf("%w: market price must be > 0, got %v", ErrInvalidParameter, req.MarketPrice)
	}
	if !req.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedOptionKind, string(req.Kind))
	}
	return nil
}

// Solve runs a one-off solve with DefaultConfig and opts.
func Solve(ctx context.Context, req Request, opts ...Option) (Result, error) {
	s, err := New(opts...)
	if err != nil {
		return Result{}, err
	}
	return s.Solve(ctx, req)
}
