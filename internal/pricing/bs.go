// Package pricing implements the Black-Scholes price of a European option.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/contactkeval/implied-vol/internal/normal"
)

var (
	// ErrInvalidParameter is returned when an input is outside its domain
	// (non-positive spot, strike, expiry or volatility, negative rate, NaN/Inf).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnsupportedOptionKind is returned for any kind other than call or put.
	ErrUnsupportedOptionKind = errors.New("unsupported option kind")
)

// Kind is the option right. Only Call and Put are valid.
type Kind string

const (
	Call Kind = "call"
	Put  Kind = "put"
)

// ParseKind maps user text to a Kind. "c" and "p" are accepted as in OCC
// symbols; anything else is rejected.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOptionKind, s)
}

// Valid reports whether k is Call or Put.
func (k Kind) Valid() bool {
	return k == Call || k == Put
}

// Params are the Black-Scholes inputs.
//
//   - Spot: spot price of the underlying (S)
//   - Strike: strike price (K)
//   - Expiry: time to expiry in years (T)
//   - Rate: continuously compounded risk-free rate (r)
//   - Vol: annualised volatility as a decimal (σ)
type Params struct {
	Spot   float64
	Strike float64
	Expiry float64
	Rate   float64
	Vol    float64
	Kind   Kind
}

// Validate checks every domain precondition of the model.
func (p Params) Validate() error {
	if err := ValidateMarket(p.Spot, p.Strike, p.Expiry, p.Rate); err != nil {
		return err
	}
	if !finite(p.Vol) || p.Vol <= 0 {
		return fmt.Errorf("%w: volatility must be > 0, got %v", ErrInvalidParameter, p.Vol)
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedOptionKind, string(p.Kind))
	}
	return nil
}

// ValidateMarket checks the volatility-independent inputs shared by the
// pricer and the implied volatility solver.
func ValidateMarket(spot, strike, expiry, rate float64) error {
	switch {
	case !finite(spot) || spot <= 0:
		return fmt.Errorf("%w: spot must be > 0, got %v", ErrInvalidParameter, spot)
	case !finite(strike) || strike <= 0:
		return fmt.Errorf("%w: strike must be > 0, got %v", ErrInvalidParameter, strike)
	case !finite(expiry) || expiry <= 0:
		return fmt.Errorf("%w: expiry must be > 0, got %v", ErrInvalidParameter, expiry)
	case !finite(rate) || rate < 0:
		return fmt.Errorf("%w: rate must be >= 0, got %v", ErrInvalidParameter, rate)
	}
	return nil
}

// Pricer prices options under Black-Scholes with an injectable normal CDF.
// The zero value uses normal.Default. A Pricer holds no mutable state and is
// safe for concurrent use.
type Pricer struct {
	CDF normal.CDF
}

// NewPricer returns a Pricer using cdf, or normal.Default when cdf is nil.
func NewPricer(cdf normal.CDF) *Pricer {
	return &Pricer{CDF: cdf}
}

// Price returns the theoretical value of the option described by p.
func (pr *Pricer) Price(p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	phi := normal.Default
	if pr != nil && pr.CDF != nil {
		phi = pr.CDF
	}

	sqrtT := math.Sqrt(p.Expiry)
	d1 := (math.Log(p.Spot/p.Strike) + (p.Rate+0.5*p.Vol*p.Vol)*p.Expiry) / (p.Vol * sqrtT)
	d2 := d1 - p.Vol*sqrtT
	if math.IsNaN(d1) || math.IsNaN(d2) {
		return 0, fmt.Errorf("%w: d1 undefined for vol %v over expiry %v", ErrInvalidParameter, p.Vol, p.Expiry)
	}
	discount := p.Strike * math.Exp(-p.Rate*p.Expiry)

	var price float64
	if p.Kind == Call {
		price = p.Spot*phi(d1) - discount*phi(d2)
	} else {
		price = discount*phi(-d2) - p.Spot*phi(-d1)
	}
	if !finite(price) {
		return 0, fmt.Errorf("%w: price not finite for %+v", ErrInvalidParameter, p)
	}

	// Cancellation in deep out-of-the-money options can leave a tiny
	// negative residue.
	if price < 0 {
		price = 0
	}
	return price, nil
}

// Price prices p with the default normal CDF.
func Price(p Params) (float64, error) {
	return (*Pricer)(nil).Price(p)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
