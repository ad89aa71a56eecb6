package ivol

import (
	"fmt"
	"math"

	"github.com/contactkeval/implied-vol/internal/normal"
	"github.com/contactkeval/implied-vol/internal/pricing"
)

// Default bisection settings.
const (
	DefaultLowerBound    = 0.01
	DefaultUpperBound    = 3.0
	DefaultTolerance     = 1e-5
	DefaultMaxIterations = 200
)

// Config is the volatility bracket and stopping rule.
type Config struct {
	LowerBound    float64 `mapstructure:"lower_bound" json:"lower_bound"`
	UpperBound    float64 `mapstructure:"upper_bound" json:"upper_bound"`
	Tolerance     float64 `mapstructure:"tolerance" json:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations" json:"max_iterations"`
}

// DefaultConfig returns the [0.01, 3.0] bracket with 1e-5 tolerance and a
// 200 iteration cap.
func DefaultConfig() Config {
	return Config{
		LowerBound:    DefaultLowerBound,
		UpperBound:    DefaultUpperBound,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate rejects brackets and tolerances the bisection cannot work with.
func (c Config) Validate() error {
	switch {
	case !finite(c.LowerBound) || c.LowerBound <= 0:
		return fmt.Errorf("%w: lower bound must be > 0, got %v", ErrInvalidParameter, c.LowerBound)
	case !finite(c.UpperBound) || c.UpperBound <= c.LowerBound:
		return fmt.Errorf("%w: upper bound must be > lower bound %v, got %v", ErrInvalidParameter, c.LowerBound, c.UpperBound)
	case !finite(c.Tolerance) || c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be > 0, got %v", ErrInvalidParameter, c.Tolerance)
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations must be > 0, got %d", ErrInvalidParameter, c.MaxIterations)
	}
	return nil
}

// Option customises a Solver.
type Option func(*Solver)

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(s *Solver) { s.cfg = c }
}

// WithBounds sets the volatility bracket.
func WithBounds(low, high float64) Option {
	return func(s *Solver) {
		s.cfg.LowerBound = low
		s.cfg.UpperBound = high
	}
}

// WithTolerance sets the bracket width at which bisection stops.
func WithTolerance(tol float64) Option {
	return func(s *Solver) { s.cfg.Tolerance = tol }
}

// WithMaxIterations caps the number of bisection steps.
func WithMaxIterations(n int) Option {
	return func(s *Solver) { s.cfg.MaxIterations = n }
}

// WithCDF prices with the given normal CDF.
func WithCDF(cdf normal.CDF) Option {
	return func(s *Solver) { s.pricer = pricing.NewPricer(cdf) }
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
